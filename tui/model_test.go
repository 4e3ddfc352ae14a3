package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/moodmarket/internal/clock"
	"github.com/zappabad/moodmarket/internal/game"
	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
	"github.com/zappabad/moodmarket/tui/panels"
)

type manualScheduler struct{ *clock.Manual }

func (manualScheduler) Start() {}
func (manualScheduler) Close() {}

func newTestModel(t *testing.T) (*Model, *game.Game) {
	t.Helper()
	updates := session.NewChannelNotifier(256)
	cfg := game.DefaultConfig()
	cfg.Seed = 21
	g, err := game.NewGame(cfg,
		game.WithNotifier(updates),
		game.WithScheduler(func() game.Scheduler {
			return manualScheduler{clock.NewManual(time.Unix(0, 0))}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(g.Close)

	m := NewModel(g, updates)
	m.Update(tea.WindowSizeMsg{Width: 180, Height: 50})
	m.View()
	return m, g
}

func press(m *Model, s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// drain runs cmd and any batched commands it returns.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, drain(c)...)
	}
	return out
}

func TestPauseKey(t *testing.T) {
	m, g := newTestModel(t)

	press(m, "space")
	assert.True(t, g.Session().Snapshot().Paused)
	assert.Contains(t, m.View(), "PAUSED")

	press(m, "space")
	assert.False(t, g.Session().Snapshot().Paused)
}

func TestDayKeys(t *testing.T) {
	m, g := newTestModel(t)

	press(m, "d")
	press(m, "w")
	press(m, "m")
	press(m, "y")
	assert.Equal(t, 1+7+30+365, g.Session().Snapshot().DayIndex)
	assert.Contains(t, m.statusMsg, "Advanced 365")
}

func TestKeepPlayingBeforeWinShowsError(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, "k")
	assert.True(t, m.statusErr)
	assert.Contains(t, m.statusMsg, "Reach the goal first")
}

func TestSelectAndTradeFromPanels(t *testing.T) {
	m, g := newTestModel(t)

	press(m, "down")
	cmd := press(m, "enter")
	require.NotNil(t, cmd)
	for _, msg := range drain(cmd) {
		m.Update(msg)
	}

	sym, ok := g.Session().Selected()
	require.True(t, ok)
	assert.Equal(t, "GOOGL", string(sym))

	cmd = m.submitOrder(panels.OrderSubmitMsg{Symbol: "GOOGL", Side: portfolio.SideBuy, Quantity: 3})
	assert.Nil(t, cmd())
	assert.Equal(t, int64(3), g.Session().Holding("GOOGL"))
}

func TestRejectedOrderIsReported(t *testing.T) {
	m, _ := newTestModel(t)

	cmd := m.submitOrder(panels.OrderSubmitMsg{Symbol: "AAPL", Side: portfolio.SideSell, Quantity: 1})
	res, ok := cmd().(orderResultMsg)
	require.True(t, ok)
	assert.True(t, res.err)
	assert.Contains(t, res.message, "Not enough shares")
}

func TestTypingInOrderEntrySkipsHotkeys(t *testing.T) {
	m, g := newTestModel(t)

	for i := PanelFocus(0); i < FocusOrderInput; i++ {
		press(m, "tab")
	}
	require.Equal(t, FocusOrderInput, m.focusedPanel)
	m.View()

	press(m, "d")
	press(m, "r")
	assert.True(t, m.orderInputPanel.Editing())
	assert.Zero(t, g.Session().Snapshot().DayIndex)
	assert.Empty(t, m.statusMsg)
}

func TestRestartKey(t *testing.T) {
	m, g := newTestModel(t)
	old := g.Session().ID()

	press(m, "d")
	press(m, "r")
	assert.NotEqual(t, old, g.Session().ID())
	assert.Zero(t, m.snap.DayIndex)
	assert.Equal(t, "New game started", m.statusMsg)
}

func TestShockEventShowsToast(t *testing.T) {
	m, g := newTestModel(t)

	_, err := g.Session().TriggerRecession()
	require.NoError(t, err)

	cmd := m.listenEvents(g.Session())
	m.Update(cmd())
	require.NotNil(t, m.toast)
	assert.Equal(t, "Market Recession", m.toast.Title)
	assert.Contains(t, m.View(), "All stocks dropped to $1.00!")

	press(m, "c")
	assert.Nil(t, m.toast)
	assert.Empty(t, g.Session().Events(10))
}

func TestSignalTradeShowsInStatus(t *testing.T) {
	m, g := newTestModel(t)
	require.NoError(t, g.Session().Select("MSFT"))

	ev := g.Runner().OnSignal(trader.SignalBuy, 0.9)
	require.Equal(t, trader.TraderEventExecuted, ev.Type, ev.Message)

	m.Update(m.listenSignals(g.Runner())())
	assert.Contains(t, m.statusMsg, "Signal buy 1 MSFT @")
	assert.False(t, m.statusErr)
}

func TestRejectedSignalShowsInStatus(t *testing.T) {
	m, g := newTestModel(t)
	require.NoError(t, g.Session().Select("MSFT"))

	ev := g.Runner().OnSignal(trader.SignalSell, 0.9)
	require.Equal(t, trader.TraderEventRejected, ev.Type)

	m.Update(m.listenSignals(g.Runner())())
	assert.Equal(t, "📡 Signal rejected: no shares to sell", m.statusMsg)
	assert.True(t, m.statusErr)
}

func TestSignalListenerStopsOnRestart(t *testing.T) {
	m, g := newTestModel(t)
	cmd := m.listenSignals(g.Runner())

	press(m, "r")
	assert.Nil(t, cmd())
}
