package game

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/moodmarket/internal/clock"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
)

type manualScheduler struct {
	*clock.Manual
	closed bool
}

func (m *manualScheduler) Start() {}
func (m *manualScheduler) Close() { m.closed = true }

func newTestGame(t *testing.T, seed int64, opts ...Option) (*Game, *[]*manualScheduler) {
	t.Helper()
	var scheds []*manualScheduler
	cfg := DefaultConfig()
	cfg.Seed = seed
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithScheduler(func() Scheduler {
			m := &manualScheduler{Manual: clock.NewManual(time.Unix(0, 0))}
			scheds = append(scheds, m)
			return m
		}),
	}, opts...)
	g, err := NewGame(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g, &scheds
}

func TestNewGameSchedulesSession(t *testing.T) {
	updates := session.NewChannelNotifier(128)
	g, scheds := newTestGame(t, 7, WithNotifier(updates))
	require.Len(t, *scheds, 1)

	sched := (*scheds)[0]
	assert.ElementsMatch(t,
		[]string{session.TaskTick, session.TaskRefresh, session.TaskCrash,
			session.TaskRecession, session.TaskEarnings, session.TaskWhale},
		sched.Tasks())

	require.True(t, sched.Run(session.TaskTick))
	select {
	case u := <-updates.C():
		assert.Equal(t, session.ReasonTick, u.Reason)
	default:
		t.Fatal("expected a tick update")
	}
	assert.Equal(t, int64(7), g.Seed())
	assert.Len(t, g.Snapshot().Market.Order, 8)
}

func TestSameSeedSameHistory(t *testing.T) {
	a, _ := newTestGame(t, 99)
	b, _ := newTestGame(t, 99)
	assert.Equal(t, a.Snapshot().Market.Prices(), b.Snapshot().Market.Prices())

	sa, err := a.Session().Series("TSLA")
	require.NoError(t, err)
	sb, err := b.Session().Series("TSLA")
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestRestartReplacesSession(t *testing.T) {
	g, scheds := newTestGame(t, 3)
	old := g.Session()
	require.NoError(t, old.Select("AAPL"))
	_, err := old.Buy("AAPL", 10)
	require.NoError(t, err)

	require.NoError(t, g.Restart(42))
	require.Len(t, *scheds, 2)
	assert.True(t, (*scheds)[0].closed)
	assert.False(t, (*scheds)[1].closed)

	cur := g.Session()
	assert.NotEqual(t, old.ID(), cur.ID())
	assert.Equal(t, int64(42), g.Seed())
	snap := cur.Snapshot()
	assert.Empty(t, snap.Holdings)
	assert.Zero(t, snap.DayIndex)
	_, selected := cur.Selected()
	assert.False(t, selected)
}

func TestHandleCountsSignals(t *testing.T) {
	g, _ := newTestGame(t, 5)

	ev := g.Handle(trader.Signal{Kind: trader.SignalBuy, Confidence: 0.9})
	assert.Equal(t, trader.TraderEventIgnored, ev.Type)

	require.NoError(t, g.Session().Select("MSFT"))
	g.Runner().SetEnabled(true)
	ev = g.Handle(trader.Signal{Kind: trader.SignalBuy, Confidence: 0.9})
	require.Equal(t, trader.TraderEventExecuted, ev.Type)
	assert.Equal(t, int64(1), g.Session().Holding("MSFT"))

	assert.Equal(t, 1.0, testutil.ToFloat64(g.Metrics.Signals.WithLabelValues("buy-signal", "executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.Metrics.Signals.WithLabelValues("buy-signal", "ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.Metrics.Orders.WithLabelValues("buy", "filled")))
}

type brokenScheduler struct{}

func (brokenScheduler) Every(string, time.Duration, func()) error { return errors.New("no timers") }
func (brokenScheduler) Start() {}
func (brokenScheduler) Close() {}

func TestClosedGameRejectsSignals(t *testing.T) {
	g, _ := newTestGame(t, 5)
	require.NoError(t, g.Session().Select("MSFT"))
	g.Close()

	ev := g.Handle(trader.Signal{Kind: trader.SignalBuy, Confidence: 0.9})
	assert.Equal(t, trader.TraderEventRejected, ev.Type)
	assert.Equal(t, "game closed", ev.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(g.Metrics.Signals.WithLabelValues("buy-signal", "rejected")))

	assert.Equal(t, session.Snapshot{}, g.Snapshot())
}

func TestFailedRestartLeavesGameClosed(t *testing.T) {
	calls := 0
	g, _ := newTestGame(t, 5, WithScheduler(func() Scheduler {
		calls++
		if calls > 1 {
			return brokenScheduler{}
		}
		return &manualScheduler{Manual: clock.NewManual(time.Unix(0, 0))}
	}))

	require.Error(t, g.Restart(9))
	assert.Nil(t, g.Session())
	assert.Equal(t, trader.TraderEventRejected, g.Handle(trader.Signal{Kind: trader.SignalSell, Confidence: 0.9}).Type)
	assert.Zero(t, g.Snapshot().Cash)
}

func TestServeExposesMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	cfg.Listen = "127.0.0.1:0"
	g, err := NewGame(cfg, WithScheduler(func() Scheduler {
		return &manualScheduler{Manual: clock.NewManual(time.Unix(0, 0))}
	}))
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.Serve())
	require.NoError(t, g.Session().RefreshPL())

	resp, err := http.Get("http://" + g.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "moodmarket_portfolio_value")
}
