package market

import (
	"errors"
	"fmt"
)

// ErrInvalidInstrument is returned when an instrument cannot be simulated.
var ErrInvalidInstrument = errors.New("invalid instrument")

// Symbol uniquely identifies an instrument.
type Symbol string

// Instrument is an immutable catalog entry.
type Instrument struct {
	Symbol     Symbol  `mapstructure:"symbol" yaml:"symbol"`
	Name       string  `mapstructure:"name" yaml:"name"`
	BasePrice  float64 `mapstructure:"base_price" yaml:"base_price"`
	Volatility float64 `mapstructure:"volatility" yaml:"volatility"`
}

// Validate checks that the instrument can seed a price series.
func (i Instrument) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidInstrument)
	}
	if i.BasePrice <= 0 {
		return fmt.Errorf("%w: %s base price %.2f", ErrInvalidInstrument, i.Symbol, i.BasePrice)
	}
	if i.Volatility <= 0 || i.Volatility >= 1 {
		return fmt.Errorf("%w: %s volatility %.4f", ErrInvalidInstrument, i.Symbol, i.Volatility)
	}
	return nil
}

// ValidateCatalog checks every instrument and rejects duplicate symbols.
func ValidateCatalog(instruments []Instrument) error {
	if len(instruments) == 0 {
		return fmt.Errorf("%w: empty catalog", ErrInvalidInstrument)
	}
	seen := make(map[Symbol]struct{}, len(instruments))
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.Symbol]; dup {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidInstrument, inst.Symbol)
		}
		seen[inst.Symbol] = struct{}{}
	}
	return nil
}

// DefaultInstruments returns the built-in catalog.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Symbol: "AAPL", Name: "Apple Inc.", BasePrice: 175.50, Volatility: 0.02},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", BasePrice: 142.30, Volatility: 0.025},
		{Symbol: "MSFT", Name: "Microsoft Corp.", BasePrice: 378.85, Volatility: 0.018},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", BasePrice: 151.25, Volatility: 0.03},
		{Symbol: "TSLA", Name: "Tesla Inc.", BasePrice: 238.45, Volatility: 0.05},
		{Symbol: "NVDA", Name: "NVIDIA Corp.", BasePrice: 495.20, Volatility: 0.04},
		{Symbol: "META", Name: "Meta Platforms", BasePrice: 325.75, Volatility: 0.028},
		{Symbol: "NFLX", Name: "Netflix Inc.", BasePrice: 445.60, Volatility: 0.035},
	}
}

// Random is the source of randomness used by the simulation.
// *rand.Rand satisfies it; tests pass a seeded one.
type Random interface {
	Float64() float64
	Intn(n int) int
}
