package service

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
	marketview "github.com/zappabad/moodmarket/internal/market/view"
	"github.com/zappabad/moodmarket/internal/news"
)

var ErrUnknownShock = errors.New("unknown shock")

// ShockKind names a low-probability bulk price event.
type ShockKind int

const (
	ShockCrash ShockKind = iota
	ShockRecession
	ShockEarnings
	ShockWhale
)

// ShockKinds lists every shock in the order checks are evaluated.
var ShockKinds = []ShockKind{ShockCrash, ShockRecession, ShockEarnings, ShockWhale}

func (k ShockKind) String() string {
	switch k {
	case ShockCrash:
		return "crash"
	case ShockRecession:
		return "recession"
	case ShockEarnings:
		return "earnings"
	case ShockWhale:
		return "whale"
	}
	return fmt.Sprintf("shock(%d)", int(k))
}

// Shock describes a shock that was applied.
type Shock struct {
	Kind   ShockKind
	Event  news.MarketEvent
	Before map[market.Symbol]float64
	After  map[market.Symbol]float64
}

// MarketService moves the live prices of a catalog. It is not safe for
// concurrent use; the session serializes calls.
type MarketService struct {
	cfg         Config
	instruments []market.Instrument
	byName      map[market.Symbol]market.Instrument
	rng         market.Random
	mview       *marketview.MarketView
	log         *zap.Logger
}

// NewMarketService creates a MarketService over instruments.
func NewMarketService(instruments []market.Instrument, rng market.Random, cfg Config, log *zap.Logger) *MarketService {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	symbols := make([]market.Symbol, 0, len(instruments))
	byName := make(map[market.Symbol]market.Instrument, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
		byName[inst.Symbol] = inst
	}
	return &MarketService{
		cfg:         cfg,
		instruments: append([]market.Instrument(nil), instruments...),
		byName:      byName,
		rng:         rng,
		mview:       marketview.NewMarketView(symbols, cfg.WindowCap),
		log:         log,
	}
}

// Config returns the effective configuration.
func (s *MarketService) Config() Config { return s.cfg }

// View returns the live market view.
func (s *MarketService) View() *marketview.MarketView { return s.mview }

// Instruments returns the catalog in order.
func (s *MarketService) Instruments() []market.Instrument {
	return append([]market.Instrument(nil), s.instruments...)
}

// Instrument looks up sym in the catalog.
func (s *MarketService) Instrument(sym market.Symbol) (market.Instrument, bool) {
	inst, ok := s.byName[sym]
	return inst, ok
}

// LoadDay replaces every instrument's live state with the day at dayIndex.
func (s *MarketService) LoadDay(all map[market.Symbol]series.Series, dayIndex int) error {
	windows := make(map[market.Symbol]series.DayWindow, len(s.instruments))
	for _, inst := range s.instruments {
		w, err := series.Project(s.rng, all[inst.Symbol], dayIndex, s.cfg.WindowCap)
		if err != nil {
			return fmt.Errorf("project %s: %w", inst.Symbol, err)
		}
		windows[inst.Symbol] = w
	}
	for _, inst := range s.instruments {
		if err := s.mview.Reset(inst.Symbol, windows[inst.Symbol]); err != nil {
			return err
		}
	}
	return nil
}

// Tick moves every instrument by ±TickStep and adds random volume.
func (s *MarketService) Tick() error {
	for _, inst := range s.instruments {
		price, err := s.mview.Price(inst.Symbol)
		if err != nil {
			return err
		}
		step := s.cfg.TickStep
		if s.rng.Float64() >= s.cfg.UpProbability {
			step = -step
		}
		if _, err := s.mview.SetPrice(inst.Symbol, math.Max(s.cfg.TickFloor, price+step)); err != nil {
			return err
		}
		vol := int64(math.Floor(s.rng.Float64() * float64(s.cfg.MaxTickVolume)))
		if err := s.mview.AddVolume(inst.Symbol, vol); err != nil {
			return err
		}
	}
	return nil
}

// Probability returns the per-check chance of kind.
func (s *MarketService) Probability(kind ShockKind) float64 {
	switch kind {
	case ShockCrash:
		return s.cfg.CrashProbability
	case ShockRecession:
		return s.cfg.RecessionProbability
	case ShockEarnings:
		return s.cfg.EarningsProbability
	case ShockWhale:
		return s.cfg.WhaleProbability
	}
	return 0
}

// Check draws once against kind's probability and applies it on a hit.
func (s *MarketService) Check(kind ShockKind) (Shock, bool, error) {
	p := s.Probability(kind)
	if p == 0 {
		return Shock{}, false, fmt.Errorf("%w: %v", ErrUnknownShock, kind)
	}
	if s.rng.Float64() >= p {
		return Shock{}, false, nil
	}
	shock, err := s.Trigger(kind)
	return shock, err == nil, err
}

// Trigger applies kind unconditionally.
func (s *MarketService) Trigger(kind ShockKind) (Shock, error) {
	shock := Shock{
		Kind:   kind,
		Before: s.mview.Snapshot().Prices(),
	}

	var err error
	switch kind {
	case ShockCrash:
		shock.Event, err = s.crash()
	case ShockRecession:
		shock.Event, err = s.recession()
	case ShockEarnings:
		shock.Event, err = s.earnings()
	case ShockWhale:
		shock.Event, err = s.whale()
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownShock, kind)
	}
	if err != nil {
		return Shock{}, err
	}

	shock.After = s.mview.Snapshot().Prices()
	s.log.Info("shock applied", zap.Stringer("shock", kind), zap.String("event", string(shock.Event.Kind)))
	return shock, nil
}

// apply sets every instrument's price to fn(price) in catalog order.
func (s *MarketService) apply(fn func(price float64) float64) error {
	for _, inst := range s.instruments {
		price, err := s.mview.Price(inst.Symbol)
		if err != nil {
			return err
		}
		if _, err := s.mview.SetPrice(inst.Symbol, fn(price)); err != nil {
			return err
		}
	}
	return nil
}

func (s *MarketService) crash() (news.MarketEvent, error) {
	err := s.apply(func(p float64) float64 {
		drop := s.cfg.CrashMinDrop + s.rng.Float64()*s.cfg.CrashDropRange
		return math.Max(s.cfg.ShockFloor, p-p*drop)
	})
	return news.MarketEvent{
		Kind:    news.KindCrash,
		Title:   "Market Crash",
		Message: fmt.Sprintf("All stocks plummeted %.0f-%.0f%%!", s.cfg.CrashMinDrop*100, (s.cfg.CrashMinDrop+s.cfg.CrashDropRange)*100),
	}, err
}

func (s *MarketService) recession() (news.MarketEvent, error) {
	err := s.apply(func(float64) float64 { return s.cfg.RecessionPrice })
	return news.MarketEvent{
		Kind:    news.KindRecession,
		Title:   "Market Recession",
		Message: fmt.Sprintf("All stocks dropped to $%.2f!", s.cfg.RecessionPrice),
	}, err
}

func (s *MarketService) earnings() (news.MarketEvent, error) {
	good := s.rng.Float64() < 0.5
	move := s.cfg.EarningsMove
	err := s.apply(func(p float64) float64 {
		if good {
			return p + p*move
		}
		return math.Max(s.cfg.ShockFloor, p-p*move)
	})
	if good {
		return news.MarketEvent{
			Kind:    news.KindEarningsGood,
			Title:   "Positive Earnings",
			Message: fmt.Sprintf("Market up %.0f%% on good news!", move*100),
		}, err
	}
	return news.MarketEvent{
		Kind:    news.KindEarningsBad,
		Title:   "Negative Earnings",
		Message: fmt.Sprintf("Market down %.0f%% on bad news!", move*100),
	}, err
}

func (s *MarketService) whale() (news.MarketEvent, error) {
	if len(s.instruments) == 0 {
		return news.MarketEvent{}, fmt.Errorf("%w: empty catalog", market.ErrInvalidInstrument)
	}
	inst := s.instruments[s.rng.Intn(len(s.instruments))]
	price, err := s.mview.Price(inst.Symbol)
	if err != nil {
		return news.MarketEvent{}, err
	}
	if _, err := s.mview.SetPrice(inst.Symbol, price+price*s.cfg.WhaleGain); err != nil {
		return news.MarketEvent{}, err
	}
	return news.MarketEvent{
		Kind:    news.KindWhale,
		Symbol:  inst.Symbol,
		Title:   "Warren Buffett Buy",
		Message: fmt.Sprintf("Buffett bought %s! Stock up %.0f%%!", inst.Name, s.cfg.WhaleGain*100),
	}, nil
}
