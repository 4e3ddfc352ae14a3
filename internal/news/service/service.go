package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/news"
	newsview "github.com/zappabad/moodmarket/internal/news/view"
)

// NewsService records market events and fans them out to one subscriber.
// The log is updated synchronously; the subscriber channel drops on overflow.
type NewsService struct {
	cfg  Config
	log  *newsview.EventLog
	zlog *zap.Logger
	now  func() time.Time

	mu             sync.RWMutex
	closed         bool
	externalEvents chan news.MarketEvent
	droppedEvents  atomic.Int64
}

// Option customizes a NewsService.
type Option func(*NewsService)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *NewsService) { s.zlog = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *NewsService) { s.now = now }
}

// NewNewsService creates a NewsService.
func NewNewsService(cfg Config, opts ...Option) *NewsService {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	if cfg.ExternalEventBuffer <= 0 {
		cfg.ExternalEventBuffer = DefaultConfig().ExternalEventBuffer
	}

	s := &NewsService{
		cfg:            cfg,
		log:            newsview.NewEventLog(cfg.Retention),
		zlog:           zap.NewNop(),
		now:            time.Now,
		externalEvents: make(chan news.MarketEvent, cfg.ExternalEventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish records ev, filling ID and Time when missing, and returns it.
func (s *NewsService) Publish(ev news.MarketEvent) news.MarketEvent {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Time.IsZero() {
		ev.Time = s.now()
	}

	s.log.Append(ev)
	s.zlog.Info("market event",
		zap.String("kind", string(ev.Kind)),
		zap.String("title", ev.Title),
		zap.String("symbol", string(ev.Symbol)),
	)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ev
	}
	select {
	case s.externalEvents <- ev:
	default:
		s.droppedEvents.Add(1)
	}
	return ev
}

// Latest returns up to n most recent events, oldest first.
func (s *NewsService) Latest(n int) []news.MarketEvent {
	return s.log.Latest(n)
}

// Clear empties the event log.
func (s *NewsService) Clear() {
	s.log.Clear()
}

// Count returns the number of retained events.
func (s *NewsService) Count() int {
	return s.log.Count()
}

// Events returns the subscriber channel. It is closed by Close.
func (s *NewsService) Events() <-chan news.MarketEvent {
	return s.externalEvents
}

// DroppedEvents returns the count of events the subscriber missed.
func (s *NewsService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Close closes the subscriber channel. The log stays readable.
func (s *NewsService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.externalEvents)
}
