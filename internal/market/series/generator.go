// Package series builds the synthetic daily price history for an instrument
// and projects a single trading day out of it.
package series

import (
	"errors"
	"fmt"

	"github.com/zappabad/moodmarket/internal/market"
)

// ErrInvalidHorizon is returned when a series is requested for fewer than one day.
var ErrInvalidHorizon = errors.New("invalid horizon")

const (
	// Drift is the deterministic daily upward trend as a fraction of price.
	Drift = 0.0002
	// WalkCenter is the center of the random walk draw. Below 0.5 skews it down.
	WalkCenter = 0.48
	// JumpProbability is the daily chance of a jump.
	JumpProbability = 0.05
	// JumpScale bounds a jump to ±JumpScale/2 of price.
	JumpScale = 0.1
	// FloorFraction is the lowest price reachable, as a fraction of base price.
	FloorFraction = 0.2
)

// Series is an immutable daily close history, one value per simulated day.
type Series []float64

// Len returns the number of days in the series.
func (s Series) Len() int { return len(s) }

// At returns the close of day i.
func (s Series) At(i int) (float64, error) {
	if i < 0 || i >= len(s) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, i, len(s))
	}
	return s[i], nil
}

// Generate builds numDays closes for inst starting at its base price.
func Generate(rng market.Random, inst market.Instrument, numDays int) (Series, error) {
	if numDays <= 0 {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidHorizon, numDays)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	floor := inst.BasePrice * FloorFraction
	out := make(Series, numDays)
	price := inst.BasePrice
	for day := 0; day < numDays; day++ {
		out[day] = price

		trend := price * Drift
		walk := (rng.Float64() - WalkCenter) * inst.Volatility * price
		jump := 0.0
		if rng.Float64() < JumpProbability {
			jump = (rng.Float64() - 0.5) * JumpScale * price
		}

		price += trend + walk + jump
		if price < floor {
			price = floor
		}
	}
	return out, nil
}

// GenerateAll builds a series for every instrument in catalog order.
func GenerateAll(rng market.Random, instruments []market.Instrument, numDays int) (map[market.Symbol]Series, error) {
	out := make(map[market.Symbol]Series, len(instruments))
	for _, inst := range instruments {
		s, err := Generate(rng, inst, numDays)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", inst.Symbol, err)
		}
		out[inst.Symbol] = s
	}
	return out, nil
}
