// Package portfolio implements the single-user trading ledger: cash,
// positions held at weighted-average cost and realized profit and loss.
package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/zappabad/moodmarket/internal/market"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Side is the direction of a fill.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// Position is a holding in one instrument. CostBasis is the cash spent
// acquiring the shares still held.
type Position struct {
	Symbol    market.Symbol
	Quantity  int64
	CostBasis decimal.Decimal
}

// AverageCost returns CostBasis / Quantity.
func (p Position) AverageCost() decimal.Decimal {
	if p.Quantity == 0 {
		return decimal.Zero
	}
	return p.CostBasis.Div(decimal.NewFromInt(p.Quantity))
}

// MarketValue returns Quantity × price.
func (p Position) MarketValue(price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(p.Quantity))
}

// Fill describes an executed order.
type Fill struct {
	Symbol   market.Symbol
	Side     Side
	Quantity int64
	Price    decimal.Decimal
	Amount   decimal.Decimal // cost of a buy, proceeds of a sell
	Realized decimal.Decimal // zero for buys
}

// Ledger owns cash, positions and realized P&L. It is not safe for
// concurrent use; callers serialize access.
type Ledger struct {
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[market.Symbol]Position
}

// NewLedger creates a ledger holding startingCash.
func NewLedger(startingCash decimal.Decimal) *Ledger {
	return &Ledger{
		cash:      startingCash,
		positions: make(map[market.Symbol]Position),
	}
}

func validate(qty int64, price float64) (decimal.Decimal, error) {
	if qty <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %.4f", ErrInvalidPrice, price)
	}
	return decimal.NewFromFloat(price), nil
}

// Buy spends qty × price of cash on sym. Nothing changes on error.
func (l *Ledger) Buy(sym market.Symbol, qty int64, price float64) (Fill, error) {
	px, err := validate(qty, price)
	if err != nil {
		return Fill{}, err
	}
	cost := px.Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(l.cash) {
		return Fill{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), l.cash.StringFixed(2))
	}

	l.cash = l.cash.Sub(cost)
	pos := l.positions[sym]
	pos.Symbol = sym
	pos.Quantity += qty
	pos.CostBasis = pos.CostBasis.Add(cost)
	l.positions[sym] = pos

	return Fill{Symbol: sym, Side: SideBuy, Quantity: qty, Price: px, Amount: cost}, nil
}

// Sell sells qty shares of sym at price. The average cost of any remaining
// shares is unchanged. Nothing changes on error.
func (l *Ledger) Sell(sym market.Symbol, qty int64, price float64) (Fill, error) {
	px, err := validate(qty, price)
	if err != nil {
		return Fill{}, err
	}
	pos, ok := l.positions[sym]
	if !ok || qty > pos.Quantity {
		return Fill{}, fmt.Errorf("%w: %s want %d, hold %d", ErrInsufficientShares, sym, qty, pos.Quantity)
	}

	proceeds := px.Mul(decimal.NewFromInt(qty))
	basis := pos.CostBasis
	if qty < pos.Quantity {
		basis = pos.CostBasis.Mul(decimal.NewFromInt(qty)).Div(decimal.NewFromInt(pos.Quantity))
	}
	realized := proceeds.Sub(basis)

	l.cash = l.cash.Add(proceeds)
	l.realized = l.realized.Add(realized)
	pos.Quantity -= qty
	pos.CostBasis = pos.CostBasis.Sub(basis)
	if pos.Quantity == 0 {
		delete(l.positions, sym)
	} else {
		l.positions[sym] = pos
	}

	return Fill{Symbol: sym, Side: SideSell, Quantity: qty, Price: px, Amount: proceeds, Realized: realized}, nil
}

// Cash returns the cash balance.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// RealizedPL returns the P&L locked in by sells.
func (l *Ledger) RealizedPL() decimal.Decimal { return l.realized }

// Position returns the holding in sym, if any.
func (l *Ledger) Position(sym market.Symbol) (Position, bool) {
	pos, ok := l.positions[sym]
	return pos, ok
}

// Quantity returns the number of shares of sym held.
func (l *Ledger) Quantity(sym market.Symbol) int64 {
	return l.positions[sym].Quantity
}

// Positions returns every holding sorted by symbol.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Value returns cash plus the market value of every position.
// Positions without a price are valued at zero.
func (l *Ledger) Value(prices map[market.Symbol]float64) decimal.Decimal {
	total := l.cash
	for sym, pos := range l.positions {
		total = total.Add(pos.MarketValue(prices[sym]))
	}
	return total
}

// Unrealized returns the mark-to-market P&L of current holdings.
func (l *Ledger) Unrealized(prices map[market.Symbol]float64) decimal.Decimal {
	total := decimal.Zero
	for sym, pos := range l.positions {
		total = total.Add(pos.MarketValue(prices[sym]).Sub(pos.CostBasis))
	}
	return total
}

// Total returns unrealized plus realized P&L.
func (l *Ledger) Total(prices map[market.Symbol]float64) decimal.Decimal {
	return l.Unrealized(prices).Add(l.realized)
}
