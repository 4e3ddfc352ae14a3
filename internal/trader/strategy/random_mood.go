package strategy

import (
	"context"
	"sync"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/trader"
)

// RandomMood stands in for a camera: every reading is a random buy or sell
// signal with a random confidence. Neutral readings produce nothing.
type RandomMood struct {
	mu  sync.Mutex
	rng market.Random
	// Neutral is the chance a reading has no dominant mood.
	Neutral float64
}

// NewRandomMood creates a RandomMood drawing from rng.
func NewRandomMood(rng market.Random, neutral float64) *RandomMood {
	return &RandomMood{rng: rng, Neutral: neutral}
}

// Next implements SignalSource.
func (m *RandomMood) Next(ctx context.Context) (trader.Signal, bool) {
	if ctx.Err() != nil {
		return trader.Signal{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rng.Float64() < m.Neutral {
		return trader.Signal{}, false
	}
	kind := trader.SignalBuy
	if m.rng.Float64() < 0.5 {
		kind = trader.SignalSell
	}
	return trader.Signal{Kind: kind, Confidence: m.rng.Float64()}, true
}
