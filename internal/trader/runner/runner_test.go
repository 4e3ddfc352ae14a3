package runner

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.HorizonDays = 20
	sess, err := session.New(cfg, rand.New(rand.NewSource(21)), session.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func newRunner(t *testing.T, sess *session.Session, cfg Config) (*Runner, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRunner(cfg, sess, WithLogger(zaptest.NewLogger(t)), WithClock(clk.now))
	t.Cleanup(r.Close)
	return r, clk
}

func TestSignalNeedsSelection(t *testing.T) {
	sess := newSession(t)
	r, _ := newRunner(t, sess, DefaultConfig())

	ev := r.OnSignal(trader.SignalBuy, 0.9)
	assert.Equal(t, trader.TraderEventIgnored, ev.Type)
	assert.Empty(t, sess.Snapshot().Holdings)
}

func TestBuySignalTradesSelected(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("AAPL"))
	cfg := DefaultConfig()
	cfg.SharesPerTrade = 3
	r, _ := newRunner(t, sess, cfg)

	ev := r.OnSignal(trader.SignalBuy, 0.9)
	require.Equal(t, trader.TraderEventExecuted, ev.Type, ev.Message)
	require.NotNil(t, ev.Fill)
	assert.Equal(t, market.Symbol("AAPL"), ev.Symbol)
	assert.Equal(t, int64(3), sess.Holding("AAPL"))

	got := <-r.Events()
	assert.Equal(t, ev.Type, got.Type)
}

func TestEventsDropWithoutReader(t *testing.T) {
	sess := newSession(t)
	cfg := DefaultConfig()
	cfg.EventBuffer = 2
	r, _ := newRunner(t, sess, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			r.OnSignal(trader.SignalBuy, 0.9)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnSignal blocked on a full events channel")
	}
	assert.Equal(t, int64(3), r.DroppedEvents())
	assert.Len(t, r.Events(), 2)

	r.Close()
	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestCooldownAndThreshold(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("MSFT"))
	r, clk := newRunner(t, sess, DefaultConfig())

	assert.Equal(t, trader.TraderEventIgnored, r.OnSignal(trader.SignalBuy, 0.64).Type)
	assert.Equal(t, trader.TraderEventExecuted, r.OnSignal(trader.SignalBuy, 0.65).Type)

	clk.advance(1999 * time.Millisecond)
	assert.Equal(t, trader.TraderEventIgnored, r.OnSignal(trader.SignalBuy, 0.99).Type)

	clk.advance(time.Millisecond)
	assert.Equal(t, trader.TraderEventExecuted, r.OnSignal(trader.SignalBuy, 0.99).Type)
	assert.Equal(t, int64(2), sess.Holding("MSFT"))
}

func TestSellIsClampedToHoldings(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("TSLA"))
	_, err := sess.Buy("TSLA", 2)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.SharesPerTrade = 5
	r, clk := newRunner(t, sess, cfg)

	ev := r.OnSignal(trader.SignalSell, 0.8)
	require.Equal(t, trader.TraderEventExecuted, ev.Type, ev.Message)
	assert.Equal(t, int64(2), ev.Fill.Quantity)
	assert.Zero(t, sess.Holding("TSLA"))

	clk.advance(3 * time.Second)
	ev = r.OnSignal(trader.SignalSell, 0.8)
	assert.Equal(t, trader.TraderEventRejected, ev.Type)
}

func TestRejectedTradeStillStartsCooldown(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("NVDA"))
	cfg := DefaultConfig()
	cfg.SharesPerTrade = 1_000
	r, clk := newRunner(t, sess, cfg)

	ev := r.OnSignal(trader.SignalBuy, 0.9)
	assert.Equal(t, trader.TraderEventRejected, ev.Type)
	assert.Contains(t, ev.Message, "insufficient funds")

	clk.advance(time.Second)
	assert.Equal(t, trader.TraderEventIgnored, r.OnSignal(trader.SignalBuy, 0.9).Type)
}

func TestDisabledAndUnknownSignals(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("AAPL"))
	r, _ := newRunner(t, sess, DefaultConfig())

	assert.Equal(t, trader.TraderEventRejected, r.OnSignal("wink", 1).Type)

	r.SetEnabled(false)
	assert.False(t, r.Enabled())
	assert.Equal(t, trader.TraderEventIgnored, r.OnSignal(trader.SignalBuy, 1).Type)
	assert.Zero(t, sess.Holding("AAPL"))
}

type scriptedSource struct {
	mu      sync.Mutex
	signals []trader.Signal
}

func (s *scriptedSource) Next(context.Context) (trader.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.signals) == 0 {
		return trader.Signal{}, false
	}
	sig := s.signals[0]
	s.signals = s.signals[1:]
	return sig, true
}

func TestRunnerPollsSource(t *testing.T) {
	sess := newSession(t)
	require.NoError(t, sess.Select("META"))

	src := &scriptedSource{signals: []trader.Signal{{Kind: trader.SignalBuy, Confidence: 0.9}}}
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	r := NewRunner(cfg, sess, WithSource(src))
	defer r.Close()

	require.Eventually(t, func() bool {
		return sess.Holding("META") == 1
	}, time.Second, 5*time.Millisecond)
}
