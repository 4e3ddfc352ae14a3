package clock

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop runs every task on a single goroutine, so no two callbacks overlap.
type Loop struct {
	log *zap.Logger

	mu      sync.Mutex
	q       queue
	started bool

	wake      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLoop creates a stopped Loop.
func NewLoop(log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		log:    log,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Every implements Scheduler. Tasks may be added before or after Start.
func (l *Loop) Every(name string, period time.Duration, fn func()) error {
	l.mu.Lock()
	err := l.q.add(name, period, fn, time.Now())
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.log.Debug("task scheduled", zap.String("task", name), zap.Duration("period", period))

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start launches the loop goroutine. Later calls are no-ops.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true

	l.wg.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.mu.Lock()
		next := l.q.earliest()
		wait := time.Hour
		if next != nil {
			wait = time.Until(next.next)
		}
		l.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(max(wait, 0))

		select {
		case <-l.closed:
			return
		case <-l.wake:
		case now := <-timer.C:
			l.runDue(now)
		}
	}
}

func (l *Loop) runDue(now time.Time) {
	for {
		select {
		case <-l.closed:
			return
		default:
		}

		l.mu.Lock()
		t := l.q.earliest()
		if t == nil || t.next.After(now) {
			l.mu.Unlock()
			return
		}
		t.next = t.next.Add(t.period)
		if t.next.Before(now) {
			// Skip missed periods rather than bursting to catch up.
			t.next = now.Add(t.period)
		}
		fn := t.fn
		l.mu.Unlock()

		fn()
	}
}

// Close stops the loop and waits for a running task to return.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
	l.wg.Wait()
}
