package view

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
)

var (
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrNonPositivePrice = errors.New("price must be positive")
)

// StockState is the live intraday state of one instrument.
type StockState struct {
	Symbol  market.Symbol
	Price   float64
	Open    float64
	High    float64
	Low     float64
	History []float64 // most recent last
	Volume  int64
}

// Change returns the move since the open.
func (s StockState) Change() float64 { return s.Price - s.Open }

// ChangePercent returns the move since the open in percent.
func (s StockState) ChangePercent() float64 {
	if s.Open == 0 {
		return 0
	}
	return s.Change() / s.Open * 100
}

func (s StockState) clone() StockState {
	s.History = append([]float64(nil), s.History...)
	return s
}

// MarketSnapshot is a point-in-time copy of every instrument's live state.
type MarketSnapshot struct {
	Order    []market.Symbol
	BySymbol map[market.Symbol]StockState
}

// Prices returns the current price per symbol.
func (m MarketSnapshot) Prices() map[market.Symbol]float64 {
	out := make(map[market.Symbol]float64, len(m.BySymbol))
	for sym, st := range m.BySymbol {
		out[sym] = st.Price
	}
	return out
}

// MarketView holds the live state of every instrument in catalog order.
type MarketView struct {
	mu        sync.RWMutex
	order     []market.Symbol
	states    map[market.Symbol]*StockState
	windowCap int
}

// NewMarketView creates a view for symbols. windowCap bounds each history.
func NewMarketView(symbols []market.Symbol, windowCap int) *MarketView {
	if windowCap <= 0 {
		windowCap = series.DefaultWindowCap
	}
	v := &MarketView{
		order:     append([]market.Symbol(nil), symbols...),
		states:    make(map[market.Symbol]*StockState, len(symbols)),
		windowCap: windowCap,
	}
	for _, sym := range symbols {
		v.states[sym] = &StockState{Symbol: sym}
	}
	return v
}

// Symbols returns the symbols in catalog order.
func (v *MarketView) Symbols() []market.Symbol {
	return append([]market.Symbol(nil), v.order...)
}

// WindowCap returns the history bound.
func (v *MarketView) WindowCap() int { return v.windowCap }

// Reset replaces the live state of sym with a freshly projected day.
func (v *MarketView) Reset(sym market.Symbol, w series.DayWindow) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.states[sym]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	hist := w.History
	if len(hist) > v.windowCap {
		hist = hist[len(hist)-v.windowCap:]
	}
	*st = StockState{
		Symbol:  sym,
		Price:   w.Close,
		Open:    w.Open,
		High:    w.High,
		Low:     w.Low,
		History: append([]float64(nil), hist...),
		Volume:  w.Volume,
	}
	return nil
}

// SetPrice moves sym to price, appending it to the history and widening
// the daily range. It returns the previous price.
func (v *MarketView) SetPrice(sym market.Symbol, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: %s %.4f", ErrNonPositivePrice, sym, price)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.states[sym]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	prev := st.Price
	st.Price = price
	if price > st.High {
		st.High = price
	}
	if price < st.Low || st.Low == 0 {
		st.Low = price
	}
	st.History = append(st.History, price)
	if over := len(st.History) - v.windowCap; over > 0 {
		st.History = append(st.History[:0], st.History[over:]...)
	}
	return prev, nil
}

// AddVolume adds n shares to the day's volume.
func (v *MarketView) AddVolume(sym market.Symbol, n int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.states[sym]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	if n > 0 {
		st.Volume += n
	}
	return nil
}

// Price returns the current price of sym.
func (v *MarketView) Price(sym market.Symbol) (float64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st, ok := v.states[sym]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return st.Price, nil
}

// State returns a copy of sym's live state.
func (v *MarketView) State(sym market.Symbol) (StockState, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st, ok := v.states[sym]
	if !ok {
		return StockState{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
	}
	return st.clone(), nil
}

// Snapshot returns a deep copy of every instrument's state.
func (v *MarketView) Snapshot() MarketSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := MarketSnapshot{
		Order:    append([]market.Symbol(nil), v.order...),
		BySymbol: make(map[market.Symbol]StockState, len(v.states)),
	}
	for sym, st := range v.states {
		snap.BySymbol[sym] = st.clone()
	}
	return snap
}
