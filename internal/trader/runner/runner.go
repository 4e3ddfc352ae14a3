package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/internal/trader"
	"github.com/zappabad/moodmarket/internal/trader/strategy"
)

// Runner turns producer signals into trades on the selected instrument.
// Signals are gated by a cooldown and a confidence threshold.
type Runner struct {
	cfg     Config
	session strategy.Session
	source  strategy.SignalSource
	log     *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastTrade time.Time
	enabled   atomic.Bool

	events        chan trader.TraderEvent
	droppedEvents atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSource polls src every PollInterval.
func WithSource(src strategy.SignalSource) Option {
	return func(r *Runner) { r.source = src }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock overrides the time source used by the cooldown.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner trading through sess. When a source is given
// it is polled on a background goroutine until Close.
func NewRunner(cfg Config, sess strategy.Session, opts ...Option) *Runner {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if cfg.SharesPerTrade <= 0 {
		cfg.SharesPerTrade = def.SharesPerTrade
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}

	r := &Runner{
		cfg:     cfg,
		session: sess,
		log:     zap.NewNop(),
		now:     time.Now,
		events:  make(chan trader.TraderEvent, cfg.EventBuffer),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.enabled.Store(cfg.Enabled)

	if r.source != nil {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.closed:
			return
		case <-ticker.C:
			r.poll()
		}
	}
}

func (r *Runner) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PollInterval)
	defer cancel()

	sig, ok := r.source.Next(ctx)
	if !ok {
		return
	}
	r.Handle(sig)
}

// OnSignal is the entry point for an external producer.
func (r *Runner) OnSignal(kind trader.SignalKind, confidence float64) trader.TraderEvent {
	return r.Handle(trader.Signal{Kind: kind, Confidence: confidence})
}

// Handle gates sig and, if it passes, trades SharesPerTrade of the selected
// instrument. Sells are clamped to the shares held. The returned event is
// also emitted on Events.
func (r *Runner) Handle(sig trader.Signal) trader.TraderEvent {
	ev := r.handle(sig)
	if ev.Type != trader.TraderEventIgnored {
		r.log.Info("signal handled",
			zap.String("kind", string(sig.Kind)),
			zap.Float64("confidence", sig.Confidence),
			zap.Stringer("outcome", ev.Type),
			zap.String("symbol", string(ev.Symbol)),
			zap.String("message", ev.Message),
		)
	}
	r.emitEvent(ev)
	return ev
}

func (r *Runner) handle(sig trader.Signal) trader.TraderEvent {
	now := r.now()
	ev := trader.TraderEvent{Time: now, Signal: sig}

	if _, err := trader.ParseSignalKind(string(sig.Kind)); err != nil {
		ev.Type = trader.TraderEventRejected
		ev.Message = err.Error()
		return ev
	}
	if !r.enabled.Load() {
		return ignored(ev, "trading disabled")
	}
	sym, ok := r.session.Selected()
	if !ok {
		return ignored(ev, "no instrument selected")
	}
	ev.Symbol = sym

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastTrade.IsZero() && now.Sub(r.lastTrade) < r.cfg.Cooldown {
		return ignored(ev, "cooling down")
	}
	if sig.Confidence < r.cfg.ConfidenceThreshold {
		return ignored(ev, fmt.Sprintf("confidence %.2f below %.2f", sig.Confidence, r.cfg.ConfidenceThreshold))
	}
	r.lastTrade = now

	var (
		fill portfolio.Fill
		err  error
	)
	switch sig.Kind {
	case trader.SignalBuy:
		fill, err = r.session.Buy(sym, r.cfg.SharesPerTrade)
	case trader.SignalSell:
		held := r.session.Holding(sym)
		if held == 0 {
			ev.Type = trader.TraderEventRejected
			ev.Message = "no shares to sell"
			return ev
		}
		fill, err = r.session.Sell(sym, min(r.cfg.SharesPerTrade, held))
	}
	if err != nil {
		ev.Type = trader.TraderEventRejected
		ev.Message = err.Error()
		return ev
	}

	ev.Type = trader.TraderEventExecuted
	ev.Fill = &fill
	ev.Message = fmt.Sprintf("%s %d %s @ %s", fill.Side, fill.Quantity, sym, fill.Price.StringFixed(2))
	return ev
}

func ignored(ev trader.TraderEvent, why string) trader.TraderEvent {
	ev.Type = trader.TraderEventIgnored
	ev.Message = why
	return ev
}

// emitEvent never blocks; signal handling must not wait on a reader.
func (r *Runner) emitEvent(ev trader.TraderEvent) {
	select {
	case r.events <- ev:
	default:
		r.droppedEvents.Add(1)
	}
}

// SetEnabled turns signal trading on or off.
func (r *Runner) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// Enabled reports whether signals are traded.
func (r *Runner) Enabled() bool {
	return r.enabled.Load()
}

// Events returns the trader events channel.
func (r *Runner) Events() <-chan trader.TraderEvent {
	return r.events
}

// Done is closed when the runner is closed.
func (r *Runner) Done() <-chan struct{} {
	return r.closed
}

// DroppedEvents returns the count of dropped events.
func (r *Runner) DroppedEvents() int64 {
	return r.droppedEvents.Load()
}

// Close stops polling. The events channel stays open for late signals.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
	r.wg.Wait()
}
