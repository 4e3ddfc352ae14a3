package series

import (
	"errors"
	"fmt"
	"math"

	"github.com/zappabad/moodmarket/internal/market"
)

// ErrInvalidIndex is returned when a day index is outside the series.
var ErrInvalidIndex = errors.New("invalid day index")

const (
	// DefaultWindowCap is the length of the recent history window.
	DefaultWindowCap = 50
	// IntradaySpread bounds the synthetic high/low to ±IntradaySpread of close.
	IntradaySpread = 0.02
	// MinVolume and VolumeRange give a day volume in [MinVolume, MinVolume+VolumeRange).
	MinVolume   = 10_000_000
	VolumeRange = 50_000_000
)

// DayWindow is the projected view of one trading day.
type DayWindow struct {
	Open    float64
	High    float64
	Low     float64
	Close   float64
	History []float64 // most recent last
	Volume  int64
}

// Project derives the trading day at dayIndex from s.
func Project(rng market.Random, s Series, dayIndex, windowCap int) (DayWindow, error) {
	if dayIndex < 0 || dayIndex >= len(s) {
		return DayWindow{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidIndex, dayIndex, len(s))
	}
	if windowCap <= 0 {
		windowCap = DefaultWindowCap
	}

	closePrice := s[dayIndex]
	open := closePrice
	if dayIndex > 0 {
		open = s[dayIndex-1]
	}

	high := closePrice * (1 + rng.Float64()*IntradaySpread)
	low := closePrice * (1 - rng.Float64()*IntradaySpread)
	high = math.Max(high, math.Max(closePrice, open))
	low = math.Min(low, math.Min(closePrice, open))

	start := dayIndex - windowCap + 1
	if start < 0 {
		start = 0
	}
	hist := make([]float64, dayIndex+1-start)
	copy(hist, s[start:dayIndex+1])

	return DayWindow{
		Open:    open,
		High:    high,
		Low:     low,
		Close:   closePrice,
		History: hist,
		Volume:  MinVolume + int64(math.Floor(rng.Float64()*VolumeRange)),
	}, nil
}
