package clock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2015, 11, 24, 0, 0, 0, 0, time.UTC)

func TestManualRunsTasksInTimeOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	require.NoError(t, m.Every("tick", time.Second, func() { order = append(order, "tick") }))
	require.NoError(t, m.Every("refresh", 500*time.Millisecond, func() { order = append(order, "refresh") }))
	require.NoError(t, m.Every("crash", time.Second, func() { order = append(order, "crash") }))

	ran := m.Advance(2 * time.Second)
	assert.Equal(t, 8, ran)
	assert.Equal(t, []string{
		"refresh",
		"tick", "refresh", "crash",
		"refresh",
		"tick", "refresh", "crash",
	}, order)
	assert.Equal(t, epoch.Add(2*time.Second), m.Now())
}

func TestManualPartialAdvance(t *testing.T) {
	m := NewManual(epoch)
	var n int
	require.NoError(t, m.Every("tick", time.Second, func() { n++ }))

	assert.Zero(t, m.Advance(999*time.Millisecond))
	assert.Equal(t, 1, m.Advance(time.Millisecond))
	assert.Equal(t, 1, n)

	assert.True(t, m.Run("tick"))
	assert.False(t, m.Run("missing"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"tick"}, m.Tasks())
}

func TestEveryRejectsNonPositivePeriod(t *testing.T) {
	m := NewManual(epoch)
	assert.ErrorIs(t, m.Every("bad", 0, func() {}), ErrInvalidPeriod)

	l := NewLoop(nil)
	defer l.Close()
	assert.ErrorIs(t, l.Every("bad", -time.Second, func() {}), ErrInvalidPeriod)
}

func TestLoopRunsTasksWithoutOverlap(t *testing.T) {
	l := NewLoop(zaptest.NewLogger(t))

	var running, overlaps atomic.Int32
	var fast, slow atomic.Int32
	guard := func(counter *atomic.Int32) func() {
		return func() {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			counter.Add(1)
			time.Sleep(time.Millisecond)
			running.Add(-1)
		}
	}
	require.NoError(t, l.Every("fast", 5*time.Millisecond, guard(&fast)))
	require.NoError(t, l.Every("slow", 10*time.Millisecond, guard(&slow)))
	l.Start()
	l.Start()

	require.Eventually(t, func() bool {
		return fast.Load() >= 3 && slow.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	l.Close()
	l.Close()

	assert.Zero(t, overlaps.Load())
}

func TestLoopCloseStopsTasks(t *testing.T) {
	l := NewLoop(nil)
	var mu sync.Mutex
	var n int
	require.NoError(t, l.Every("tick", 2*time.Millisecond, func() {
		mu.Lock()
		n++
		mu.Unlock()
	}))
	l.Start()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return n > 0
	}, time.Second, time.Millisecond)
	l.Close()

	mu.Lock()
	after := n
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, after, n)
}
