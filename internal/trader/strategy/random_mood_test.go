package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zappabad/moodmarket/internal/trader"
)

func TestRandomMoodProducesValidSignals(t *testing.T) {
	m := NewRandomMood(rand.New(rand.NewSource(1)), 0.3)
	ctx := context.Background()

	seen := map[trader.SignalKind]int{}
	none := 0
	for i := 0; i < 1000; i++ {
		sig, ok := m.Next(ctx)
		if !ok {
			none++
			continue
		}
		seen[sig.Kind]++
		assert.GreaterOrEqual(t, sig.Confidence, 0.0)
		assert.Less(t, sig.Confidence, 1.0)
	}
	assert.Positive(t, seen[trader.SignalBuy])
	assert.Positive(t, seen[trader.SignalSell])
	assert.Positive(t, none)
	assert.Len(t, seen, 2)
}

func TestRandomMoodStopsOnCancel(t *testing.T) {
	m := NewRandomMood(rand.New(rand.NewSource(1)), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := m.Next(ctx)
	assert.False(t, ok)
}
