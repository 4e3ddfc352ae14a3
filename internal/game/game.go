package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/bridge"
	"github.com/zappabad/moodmarket/internal/clock"
	"github.com/zappabad/moodmarket/internal/metrics"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
	"github.com/zappabad/moodmarket/internal/trader/runner"
	"github.com/zappabad/moodmarket/internal/trader/strategy"
)

// Scheduler is a clock the game can start and stop.
type Scheduler interface {
	clock.Scheduler
	Start()
	Close()
}

// Option customizes a Game.
type Option func(*Game)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) { g.log = l }
}

// WithScheduler replaces the wall-clock loop. newSched is called for every
// session so Restart gets a fresh scheduler.
func WithScheduler(newSched func() Scheduler) Option {
	return func(g *Game) { g.newSched = newSched }
}

// WithFaultHandler sets the handler for errors raised by scheduled tasks.
func WithFaultHandler(fn func(task string, err error)) Option {
	return func(g *Game) { g.onFault = fn }
}

// WithNotifier registers n on every session the game creates.
func WithNotifier(n session.Notifier) Option {
	return func(g *Game) { g.notifiers = append(g.notifiers, n) }
}

// Game owns all the game subsystems and manages their lifecycle.
type Game struct {
	cfg       Config
	log       *zap.Logger
	newSched  func() Scheduler
	onFault   func(task string, err error)
	notifiers []session.Notifier

	Metrics *metrics.Metrics
	Hub     *bridge.Hub

	mu      sync.RWMutex
	session *session.Session
	runner  *runner.Runner
	sched   Scheduler
	seed    int64

	server *http.Server
	addr   string
}

// NewGame creates and starts a game from cfg.
func NewGame(cfg Config, opts ...Option) (*Game, error) {
	g := &Game{
		cfg:     cfg,
		log:     zap.NewNop(),
		Metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.newSched == nil {
		g.newSched = func() Scheduler { return clock.NewLoop(g.log) }
	}
	g.Hub = bridge.NewHub(cfg.Bridge, g, g.log)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.startLocked(cfg.Seed); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) startLocked(seed int64) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	opts := []session.Option{
		session.WithLogger(g.log),
		session.WithNotifier(g.Metrics),
		session.WithNotifier(g.Hub),
		session.WithOrderObserver(g.Metrics),
	}
	if g.onFault != nil {
		opts = append(opts, session.WithFaultHandler(g.onFault))
	}
	for _, n := range g.notifiers {
		opts = append(opts, session.WithNotifier(n))
	}
	sess, err := session.New(g.cfg.Session, rng, opts...)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}

	sched := g.newSched()
	if err := sess.Schedule(sched); err != nil {
		sched.Close()
		sess.Close()
		return err
	}

	ropts := []runner.Option{runner.WithLogger(g.log)}
	if g.cfg.Mood.Enabled {
		moodRng := rand.New(rand.NewSource(seed + 1))
		ropts = append(ropts, runner.WithSource(strategy.NewRandomMood(moodRng, g.cfg.Mood.Neutral)))
	}
	r := runner.NewRunner(g.cfg.Runner, sess, ropts...)

	g.session, g.runner, g.sched, g.seed = sess, r, sched, seed
	sched.Start()

	g.log.Info("game started", zap.Int64("seed", seed), zap.String("session", sess.ID().String()))
	return nil
}

func (g *Game) stopLocked() {
	if g.runner != nil {
		g.runner.Close()
	}
	if g.sched != nil {
		g.sched.Close()
	}
	if g.session != nil {
		g.session.Close()
	}
	g.session, g.runner, g.sched = nil, nil, nil
}

// Restart stops every timer, discards the session and starts a new one.
// A zero seed picks a fresh one.
func (g *Game) Restart(seed int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	return g.startLocked(seed)
}

// Session returns the current session.
func (g *Game) Session() *session.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// Runner returns the current signal runner.
func (g *Game) Runner() *runner.Runner {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.runner
}

// Seed returns the seed of the current session.
func (g *Game) Seed() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.seed
}

// Snapshot implements bridge.Backend. A closed game reports a zero snapshot.
func (g *Game) Snapshot() session.Snapshot {
	sess := g.Session()
	if sess == nil {
		return session.Snapshot{}
	}
	return sess.Snapshot()
}

// Handle implements bridge.Backend. Signals sent to a closed game are
// rejected.
func (g *Game) Handle(sig trader.Signal) trader.TraderEvent {
	r := g.Runner()
	if r == nil {
		ev := trader.TraderEvent{
			Time:    time.Now(),
			Type:    trader.TraderEventRejected,
			Signal:  sig,
			Message: "game closed",
		}
		g.Metrics.ObserveSignal(ev)
		return ev
	}
	ev := r.Handle(sig)
	g.Metrics.ObserveSignal(ev)
	return ev
}

// Serve listens on cfg.Listen and serves /ws and /metrics until Close.
func (g *Game) Serve() error {
	if g.cfg.Listen == "" {
		return nil
	}
	ln, err := net.Listen("tcp", g.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", g.cfg.Listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", g.Hub)
	mux.Handle("/metrics", g.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.mu.Lock()
	g.server = srv
	g.addr = ln.Addr().String()
	g.mu.Unlock()

	g.log.Info("serving", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the address Serve is listening on.
func (g *Game) Addr() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.addr
}

// Close shuts down all game subsystems in reverse dependency order:
// listeners and websocket clients first, then the runner, clock and session.
func (g *Game) Close() {
	g.mu.Lock()
	srv := g.server
	g.server = nil
	g.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	g.Hub.Close()

	g.mu.Lock()
	g.stopLocked()
	g.mu.Unlock()
}
