// Package session owns one game: the generated price history, the live
// market, the event log and the trading ledger. Every operation runs under
// the session lock and notifiers are called after it is released.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/clock"
	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
	marketservice "github.com/zappabad/moodmarket/internal/market/service"
	"github.com/zappabad/moodmarket/internal/news"
	newsservice "github.com/zappabad/moodmarket/internal/news/service"
	"github.com/zappabad/moodmarket/internal/portfolio"
)

var (
	ErrMarketPaused    = errors.New("market is paused")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrInvalidDays     = errors.New("days must be at least 1")
	ErrHorizonExceeded = errors.New("trading horizon exceeded")
	ErrNotWon          = errors.New("game has not been won")

	ErrInvalidQuantity    = portfolio.ErrInvalidQuantity
	ErrInsufficientFunds  = portfolio.ErrInsufficientFunds
	ErrInsufficientShares = portfolio.ErrInsufficientShares
	ErrInvalidIndex       = series.ErrInvalidIndex
	ErrInvalidHorizon     = series.ErrInvalidHorizon
)

// Task names registered by Schedule.
const (
	TaskTick      = "tick"
	TaskRefresh   = "refresh"
	TaskCrash     = "crash"
	TaskRecession = "recession"
	TaskEarnings  = "earnings"
	TaskWhale     = "whale"
)

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithNotifier registers n before the session starts.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifiers = append(s.notifiers, n) }
}

// WithOrderObserver registers an observer of order attempts.
func WithOrderObserver(o OrderObserver) Option {
	return func(s *Session) { s.orders = append(s.orders, o) }
}

// WithFaultHandler sets the handler for errors raised by scheduled tasks.
// The default logs them.
func WithFaultHandler(fn func(task string, err error)) Option {
	return func(s *Session) { s.onFault = fn }
}

// WithClock overrides the timestamp source for events.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one single-player game.
type Session struct {
	id      uuid.UUID
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
	onFault func(task string, err error)

	nmu       sync.RWMutex
	notifiers []Notifier
	orders    []OrderObserver

	mu       sync.Mutex
	series   map[market.Symbol]series.Series
	market   *marketservice.MarketService
	news     *newsservice.NewsService
	ledger   *portfolio.Ledger
	dayIndex int
	paused   bool
	won      bool
	endless  bool
	selected market.Symbol
}

// New generates the full price history for cfg.Instruments and loads day
// zero. Nothing is scheduled until Schedule is called.
func New(cfg Config, rng market.Random, opts ...Option) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := market.ValidateCatalog(cfg.Instruments); err != nil {
		return nil, err
	}

	s := &Session{
		id:  uuid.New(),
		cfg: cfg,
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", s.id.String()))
	if s.onFault == nil {
		s.onFault = func(task string, err error) {
			s.log.Error("scheduled task failed", zap.String("task", task), zap.Error(err))
		}
	}

	all, err := series.GenerateAll(rng, cfg.Instruments, cfg.HorizonDays)
	if err != nil {
		return nil, err
	}
	s.series = all
	s.market = marketservice.NewMarketService(cfg.Instruments, rng, cfg.Market, s.log)
	s.news = newsservice.NewNewsService(cfg.News, newsservice.WithLogger(s.log), newsservice.WithClock(s.now))
	s.ledger = portfolio.NewLedger(decimal.NewFromFloat(cfg.StartingCash))

	if err := s.market.LoadDay(s.series, 0); err != nil {
		return nil, err
	}

	s.log.Info("session started",
		zap.Int("instruments", len(cfg.Instruments)),
		zap.Int("horizon_days", cfg.HorizonDays),
		zap.Float64("starting_cash", cfg.StartingCash),
	)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// News returns the event log service.
func (s *Session) News() *newsservice.NewsService { return s.news }

// Instruments returns the catalog in order.
func (s *Session) Instruments() []market.Instrument { return s.market.Instruments() }

// Series returns the generated history of sym.
func (s *Session) Series(sym market.Symbol) (series.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser, ok := s.series[sym]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return ser, nil
}

// AddNotifier registers n for every later update.
func (s *Session) AddNotifier(n Notifier) {
	s.nmu.Lock()
	defer s.nmu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// AddOrderObserver registers o for every later order attempt.
func (s *Session) AddOrderObserver(o OrderObserver) {
	s.nmu.Lock()
	defer s.nmu.Unlock()
	s.orders = append(s.orders, o)
}

// Schedule registers the periodic market tasks on sched.
func (s *Session) Schedule(sched clock.Scheduler) error {
	tasks := []struct {
		name   string
		period time.Duration
		run    func() error
	}{
		{TaskTick, s.cfg.TickInterval, s.Tick},
		{TaskRefresh, s.cfg.RefreshInterval, s.RefreshPL},
		{TaskCrash, s.cfg.ShockInterval, s.checkFn(marketservice.ShockCrash)},
		{TaskRecession, s.cfg.ShockInterval, s.checkFn(marketservice.ShockRecession)},
		{TaskEarnings, s.cfg.ShockInterval, s.checkFn(marketservice.ShockEarnings)},
		{TaskWhale, s.cfg.ShockInterval, s.checkFn(marketservice.ShockWhale)},
	}
	for _, t := range tasks {
		name, run := t.name, t.run
		err := sched.Every(name, t.period, func() {
			if err := run(); err != nil && !errors.Is(err, ErrMarketPaused) {
				s.onFault(name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	return nil
}

func (s *Session) checkFn(kind marketservice.ShockKind) func() error {
	return func() error {
		_, err := s.check(kind)
		return err
	}
}

// Tick moves every price by one step.
func (s *Session) Tick() error {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return ErrMarketPaused
	}
	if err := s.market.Tick(); err != nil {
		s.mu.Unlock()
		return err
	}
	ups := s.commitLocked(Update{Reason: ReasonTick})
	s.mu.Unlock()

	s.publish(ups)
	return nil
}

// RefreshPL recomputes valuations and publishes them.
func (s *Session) RefreshPL() error {
	s.mu.Lock()
	ups := s.commitLocked(Update{Reason: ReasonRefresh})
	s.mu.Unlock()

	s.publish(ups)
	return nil
}

// CheckCrash draws for a crash and applies it on a hit.
func (s *Session) CheckCrash() (bool, error) { return s.check(marketservice.ShockCrash) }

// CheckRecession draws for a recession and applies it on a hit.
func (s *Session) CheckRecession() (bool, error) { return s.check(marketservice.ShockRecession) }

// CheckEarnings draws for an earnings report and applies it on a hit.
func (s *Session) CheckEarnings() (bool, error) { return s.check(marketservice.ShockEarnings) }

// CheckWhale draws for a whale buy and applies it on a hit.
func (s *Session) CheckWhale() (bool, error) { return s.check(marketservice.ShockWhale) }

// CheckShocks runs every shock check in order and returns the events
// that fired. Several can fire in one call; each applies in turn.
func (s *Session) CheckShocks() ([]news.MarketEvent, error) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return nil, ErrMarketPaused
	}
	var fired []news.MarketEvent
	var ups []Update
	for _, kind := range marketservice.ShockKinds {
		if s.paused {
			// a whale can win the game and pause it mid-round
			break
		}
		shock, hit, err := s.market.Check(kind)
		if err != nil {
			s.mu.Unlock()
			s.publish(ups)
			return fired, err
		}
		if !hit {
			continue
		}
		ev := s.news.Publish(shock.Event)
		fired = append(fired, ev)
		ups = append(ups, s.commitLocked(Update{Reason: ReasonShock, Event: &ev})...)
	}
	s.mu.Unlock()

	s.publish(ups)
	return fired, nil
}

func (s *Session) check(kind marketservice.ShockKind) (bool, error) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return false, ErrMarketPaused
	}
	shock, hit, err := s.market.Check(kind)
	if err != nil || !hit {
		s.mu.Unlock()
		return false, err
	}
	ev := s.news.Publish(shock.Event)
	ups := s.commitLocked(Update{Reason: ReasonShock, Event: &ev})
	s.mu.Unlock()

	s.publish(ups)
	return true, nil
}

// TriggerCrash applies a crash unconditionally.
func (s *Session) TriggerCrash() (news.MarketEvent, error) {
	return s.trigger(marketservice.ShockCrash)
}

// TriggerRecession applies a recession unconditionally.
func (s *Session) TriggerRecession() (news.MarketEvent, error) {
	return s.trigger(marketservice.ShockRecession)
}

// TriggerEarnings applies an earnings report unconditionally.
func (s *Session) TriggerEarnings() (news.MarketEvent, error) {
	return s.trigger(marketservice.ShockEarnings)
}

// TriggerWhale applies a whale buy unconditionally.
func (s *Session) TriggerWhale() (news.MarketEvent, error) {
	return s.trigger(marketservice.ShockWhale)
}

func (s *Session) trigger(kind marketservice.ShockKind) (news.MarketEvent, error) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return news.MarketEvent{}, ErrMarketPaused
	}
	shock, err := s.market.Trigger(kind)
	if err != nil {
		s.mu.Unlock()
		return news.MarketEvent{}, err
	}
	ev := s.news.Publish(shock.Event)
	ups := s.commitLocked(Update{Reason: ReasonShock, Event: &ev})
	s.mu.Unlock()

	s.publish(ups)
	return ev, nil
}

// Buy buys qty shares of sym at the live price.
func (s *Session) Buy(sym market.Symbol, qty int64) (portfolio.Fill, error) {
	return s.trade(portfolio.SideBuy, sym, qty)
}

// Sell sells qty shares of sym at the live price.
func (s *Session) Sell(sym market.Symbol, qty int64) (portfolio.Fill, error) {
	return s.trade(portfolio.SideSell, sym, qty)
}

func (s *Session) trade(side portfolio.Side, sym market.Symbol, qty int64) (portfolio.Fill, error) {
	fill, ups, err := s.tradeLocked(side, sym, qty)
	s.observeOrder(side, err)
	if err != nil {
		s.log.Warn("order rejected",
			zap.Stringer("side", side),
			zap.String("symbol", string(sym)),
			zap.Int64("quantity", qty),
			zap.Error(err),
		)
		return portfolio.Fill{}, err
	}
	s.log.Info("order filled",
		zap.Stringer("side", side),
		zap.String("symbol", string(sym)),
		zap.Int64("quantity", qty),
		zap.String("price", fill.Price.StringFixed(2)),
		zap.String("realized", fill.Realized.StringFixed(2)),
	)
	s.publish(ups)
	return fill, nil
}

func (s *Session) tradeLocked(side portfolio.Side, sym market.Symbol, qty int64) (portfolio.Fill, []Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return portfolio.Fill{}, nil, ErrMarketPaused
	}
	price, err := s.market.View().Price(sym)
	if err != nil {
		return portfolio.Fill{}, nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}

	var fill portfolio.Fill
	if side == portfolio.SideBuy {
		fill, err = s.ledger.Buy(sym, qty, price)
	} else {
		fill, err = s.ledger.Sell(sym, qty, price)
	}
	if err != nil {
		return portfolio.Fill{}, nil, err
	}
	return fill, s.commitLocked(Update{Reason: ReasonTrade, Fill: &fill}), nil
}

// AdvanceDay jumps days forward and reloads every instrument's live state
// from the new day. Intraday moves of the old day are discarded.
func (s *Session) AdvanceDay(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}

	s.mu.Lock()
	next := s.dayIndex + days
	if next >= s.cfg.HorizonDays {
		s.mu.Unlock()
		return fmt.Errorf("%w: day %d of %d", ErrHorizonExceeded, next, s.cfg.HorizonDays)
	}
	if err := s.market.LoadDay(s.series, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.dayIndex = next
	ups := s.commitLocked(Update{Reason: ReasonDay})
	date := s.dateLocked()
	s.mu.Unlock()

	s.log.Info("day advanced", zap.Int("days", days), zap.Int("day_index", next), zap.Time("date", date))
	s.publish(ups)
	return nil
}

// Pause stops ticks, shocks and trading.
func (s *Session) Pause() { s.setPaused(true) }

// Resume restarts ticks, shocks and trading.
func (s *Session) Resume() { s.setPaused(false) }

// TogglePause flips the paused state and returns the new value.
func (s *Session) TogglePause() bool {
	s.mu.Lock()
	paused := !s.paused
	s.mu.Unlock()
	s.setPaused(paused)
	return paused
}

func (s *Session) setPaused(paused bool) {
	s.mu.Lock()
	if s.paused == paused {
		s.mu.Unlock()
		return
	}
	s.paused = paused
	ups := s.commitLocked(Update{Reason: ReasonPause})
	s.mu.Unlock()

	s.log.Info("market paused", zap.Bool("paused", paused))
	s.publish(ups)
}

// KeepPlaying resumes a won game in endless mode.
func (s *Session) KeepPlaying() error {
	s.mu.Lock()
	if !s.won {
		s.mu.Unlock()
		return ErrNotWon
	}
	s.endless = true
	s.paused = false
	ups := s.commitLocked(Update{Reason: ReasonPause})
	s.mu.Unlock()

	s.log.Info("endless mode")
	s.publish(ups)
	return nil
}

// Select marks sym as the instrument signals trade.
func (s *Session) Select(sym market.Symbol) error {
	if _, ok := s.market.Instrument(sym); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	s.mu.Lock()
	s.selected = sym
	ups := s.commitLocked(Update{Reason: ReasonSelect})
	s.mu.Unlock()

	s.publish(ups)
	return nil
}

// Selected returns the selected instrument, if any.
func (s *Session) Selected() (market.Symbol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Holding returns the number of shares of sym held.
func (s *Session) Holding(sym market.Symbol) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Quantity(sym)
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Events returns up to n most recent market events, oldest first.
func (s *Session) Events(n int) []news.MarketEvent {
	return s.news.Latest(n)
}

// ClearEvents empties the event log.
func (s *Session) ClearEvents() {
	s.news.Clear()
}

// Close releases the event subscriber channel.
func (s *Session) Close() {
	s.news.Close()
}

// commitLocked finishes a mutation: it checks the win condition and
// returns the updates to publish once the lock is released.
func (s *Session) commitLocked(u Update) []Update {
	u.Snapshot = s.snapshotLocked()
	ups := []Update{u}

	if !s.won && u.Snapshot.Value.GreaterThanOrEqual(decimal.NewFromFloat(s.cfg.WinThreshold)) {
		s.won = true
		s.paused = true
		snap := s.snapshotLocked()
		s.log.Info("win threshold reached", zap.String("value", snap.Value.StringFixed(2)))
		ups = append(ups, Update{Reason: ReasonWin, Snapshot: snap})
	}
	return ups
}

func (s *Session) snapshotLocked() Snapshot {
	msnap := s.market.View().Snapshot()
	prices := msnap.Prices()

	positions := s.ledger.Positions()
	holdings := make([]Holding, 0, len(positions))
	for _, pos := range positions {
		price := prices[pos.Symbol]
		mv := pos.MarketValue(price)
		holdings = append(holdings, Holding{
			Position:     pos,
			Price:        price,
			MarketValue:  mv,
			UnrealizedPL: mv.Sub(pos.CostBasis),
		})
	}

	return Snapshot{
		SessionID:    s.id,
		Market:       msnap,
		Cash:         s.ledger.Cash(),
		Value:        s.ledger.Value(prices),
		RealizedPL:   s.ledger.RealizedPL(),
		UnrealizedPL: s.ledger.Unrealized(prices),
		TotalPL:      s.ledger.Total(prices),
		Holdings:     holdings,
		DayIndex:     s.dayIndex,
		HorizonDays:  s.cfg.HorizonDays,
		Date:         s.dateLocked(),
		Paused:       s.paused,
		Won:          s.won,
		KeepPlaying:  s.endless,
		Selected:     s.selected,
	}
}

func (s *Session) dateLocked() time.Time {
	return s.cfg.StartDate.AddDate(0, 0, s.dayIndex)
}

func (s *Session) publish(ups []Update) {
	if len(ups) == 0 {
		return
	}
	s.nmu.RLock()
	notifiers := append([]Notifier(nil), s.notifiers...)
	s.nmu.RUnlock()

	for _, u := range ups {
		for _, n := range notifiers {
			n.OnMarketChanged(u)
		}
	}
}

func (s *Session) observeOrder(side portfolio.Side, err error) {
	s.nmu.RLock()
	observers := append([]OrderObserver(nil), s.orders...)
	s.nmu.RUnlock()

	for _, o := range observers {
		o.ObserveOrder(side, err)
	}
}
