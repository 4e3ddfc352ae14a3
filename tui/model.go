package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/news"
	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
	"github.com/zappabad/moodmarket/internal/trader/runner"
	"github.com/zappabad/moodmarket/tui/panels"
	"github.com/zappabad/moodmarket/tui/styles"
)

// Game is the part of game.Game the screen drives.
type Game interface {
	Session() *session.Session
	Runner() *runner.Runner
	Restart(seed int64) error
}

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusMarket PanelFocus = iota
	FocusHoldings
	FocusChart
	FocusEvents
	FocusOrderInput
	numPanels
)

const (
	eventsShown     = 50
	refreshInterval = time.Second
)

type keyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Next      key.Binding
	Prev      key.Binding
	Leave     key.Binding
	Pause     key.Binding
	Day       key.Binding
	Week      key.Binding
	Month     key.Binding
	Year      key.Binding
	Keep      key.Binding
	Restart   key.Binding
	Clear     key.Binding
	Signals   key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "panel")),
	Prev:      key.NewBinding(key.WithKeys("shift+tab")),
	Leave:     key.NewBinding(key.WithKeys("esc")),
	Pause:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause")),
	Day:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d/w/m/y", "+1/7/30/365 days")),
	Week:      key.NewBinding(key.WithKeys("w")),
	Month:     key.NewBinding(key.WithKeys("m")),
	Year:      key.NewBinding(key.WithKeys("y")),
	Keep:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "keep playing")),
	Restart:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear events")),
	Signals:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "signal trading")),
}

// Model is the main TUI application model.
type Model struct {
	game    Game
	updates *session.ChannelNotifier

	instruments []market.Instrument
	snap        session.Snapshot

	marketPanel     *panels.MarketPanel
	holdingsPanel   *panels.HoldingsPanel
	chartPanel      *panels.CandlestickPanel
	eventsPanel     *panels.EventsPanel
	orderInputPanel *panels.OrderInputPanel

	focusedPanel PanelFocus

	width  int
	height int

	statusMsg string
	statusErr bool
	toast     *news.MarketEvent
	ready     bool
}

// NewModel creates the game screen. updates must be registered as a
// notifier on every session g creates.
func NewModel(g Game, updates *session.ChannelNotifier) *Model {
	instruments := g.Session().Instruments()
	m := &Model{
		game:            g,
		updates:         updates,
		instruments:     instruments,
		marketPanel:     panels.NewMarketPanel(instruments),
		holdingsPanel:   panels.NewHoldingsPanel(),
		chartPanel:      panels.NewCandlestickPanel(),
		eventsPanel:     panels.NewEventsPanel(),
		orderInputPanel: panels.NewOrderInputPanel(instruments),
		focusedPanel:    FocusMarket,
	}
	m.chartCursor()
	m.applySnapshot(g.Session().Snapshot())
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.orderInputPanel.Init(),
		m.listenUpdates(),
		m.listenEvents(m.game.Session()),
		m.listenSignals(m.game.Runner()),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.orderInputPanel.Editing() && !key.Matches(msg, keys.Next, keys.Prev, keys.Leave) {
			break
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case updateMsg:
		m.handleUpdate(session.Update(msg))
		cmds = append(cmds, m.listenUpdates())

	case eventMsg:
		if msg.session == m.game.Session().ID() {
			ev := msg.event
			m.toast = &ev
			m.eventsPanel.SetEvents(m.game.Session().Events(eventsShown))
			cmds = append(cmds, m.listenEvents(m.game.Session()))
		}

	case signalMsg:
		if msg.runner == m.game.Runner() {
			m.handleSignal(msg.event)
			cmds = append(cmds, m.listenSignals(msg.runner))
		}

	case panels.InstrumentSelectedMsg:
		if err := m.game.Session().Select(msg.Instrument.Symbol); err != nil {
			m.setStatus(err)
		} else {
			m.orderInputPanel.SetInstrument(msg.Instrument)
			m.setStatus(nil, "Trading %s on signals", msg.Instrument.Symbol)
		}

	case panels.OrderSubmitMsg:
		cmds = append(cmds, m.submitOrder(msg))

	case orderResultMsg:
		m.statusMsg, m.statusErr = msg.message, msg.err

	case tickMsg:
		m.applySnapshot(m.game.Session().Snapshot())
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)
	return m, tea.Batch(cmds...)
}

// handleKey runs the global key bindings.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	sess := m.game.Session()

	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, keys.Next):
		m.focusedPanel = (m.focusedPanel + 1) % numPanels
	case key.Matches(msg, keys.Prev):
		m.focusedPanel = (m.focusedPanel + numPanels - 1) % numPanels
	case key.Matches(msg, keys.Leave):
		m.focusedPanel = FocusMarket
	case key.Matches(msg, keys.Pause):
		if sess.TogglePause() {
			m.setStatus(nil, "Market paused")
		} else {
			m.setStatus(nil, "Market resumed")
		}
	case key.Matches(msg, keys.Day):
		m.advance(1)
	case key.Matches(msg, keys.Week):
		m.advance(7)
	case key.Matches(msg, keys.Month):
		m.advance(30)
	case key.Matches(msg, keys.Year):
		m.advance(365)
	case key.Matches(msg, keys.Keep):
		if err := sess.KeepPlaying(); err != nil {
			m.setStatus(err)
		} else {
			m.setStatus(nil, "Endless mode: keep trading!")
		}
	case key.Matches(msg, keys.Restart):
		return m.restart(), true
	case key.Matches(msg, keys.Clear):
		sess.ClearEvents()
		m.eventsPanel.SetEvents(nil)
		m.toast = nil
	case key.Matches(msg, keys.Signals):
		r := m.game.Runner()
		r.SetEnabled(!r.Enabled())
		if r.Enabled() {
			m.setStatus(nil, "Signal trading on")
		} else {
			m.setStatus(nil, "Signal trading off")
		}
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) advance(days int) {
	if err := m.game.Session().AdvanceDay(days); err != nil {
		m.setStatus(err)
		return
	}
	m.setStatus(nil, "Advanced %d day(s)", days)
}

func (m *Model) restart() tea.Cmd {
	if err := m.game.Restart(0); err != nil {
		m.setStatus(err)
		return nil
	}
	sess := m.game.Session()
	m.toast = nil
	m.eventsPanel.SetEvents(nil)
	m.orderInputPanel.Reset()
	m.chartPanel.SetSeries("", nil)
	m.chartCursor()
	m.applySnapshot(sess.Snapshot())
	m.setStatus(nil, "New game started")
	return tea.Batch(m.listenEvents(sess), m.listenSignals(m.game.Runner()))
}

func (m *Model) handleUpdate(u session.Update) {
	if u.Snapshot.SessionID != m.game.Session().ID() {
		return
	}
	m.applySnapshot(u.Snapshot)

	switch u.Reason {
	case session.ReasonWin:
		m.statusMsg = fmt.Sprintf("🎉 You reached %s! k to keep playing, r to restart",
			styles.FormatMoney(u.Snapshot.Value))
		m.statusErr = false
	case session.ReasonTrade:
		if u.Fill != nil {
			m.setStatus(nil, "%s", describeFill(*u.Fill))
		}
	}
}

// handleSignal reports signal trades. Ignored signals are not shown.
func (m *Model) handleSignal(ev trader.TraderEvent) {
	switch ev.Type {
	case trader.TraderEventExecuted:
		m.statusMsg, m.statusErr = "📡 Signal "+ev.Message, false
	case trader.TraderEventRejected:
		m.statusMsg, m.statusErr = "📡 Signal rejected: "+ev.Message, true
	}
}

func (m *Model) applySnapshot(snap session.Snapshot) {
	m.snap = snap
	m.marketPanel.SetSnapshot(snap.Market, snap.Selected)
	m.holdingsPanel.SetSnapshot(snap)
	if sym := m.chartPanel.Symbol(); sym != "" {
		if st, ok := snap.Market.BySymbol[sym]; ok {
			m.chartPanel.SetDay(snap.DayIndex, &st)
		}
	}
}

// chartCursor points the chart at the instrument under the market cursor.
func (m *Model) chartCursor() {
	inst := m.marketPanel.Cursor()
	if inst.Symbol == "" || inst.Symbol == m.chartPanel.Symbol() {
		return
	}
	sess := m.game.Session()
	s, err := sess.Series(inst.Symbol)
	if err != nil {
		m.setStatus(err)
		return
	}
	m.chartPanel.SetSeries(inst.Symbol, s)
	if st, ok := m.snap.Market.BySymbol[inst.Symbol]; ok {
		m.chartPanel.SetDay(m.snap.DayIndex, &st)
	}
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
		m.chartCursor()
	case FocusHoldings:
		m.holdingsPanel, cmd = m.holdingsPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusEvents:
		m.eventsPanel, cmd = m.eventsPanel.Update(msg)
	case FocusOrderInput:
		m.orderInputPanel, cmd = m.orderInputPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket)
	m.holdingsPanel.SetFocus(m.focusedPanel == FocusHoldings)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.eventsPanel.SetFocus(m.focusedPanel == FocusEvents)
	m.orderInputPanel.SetFocus(m.focusedPanel == FocusOrderInput)

	// Layout:
	// ┌────────────────────────────────────────────┐
	// │  Market          │  Portfolio  │   Chart   │
	// ├──────────────────┼─────────────┴───────────┤
	// │  Market Events   │      Order Entry        │
	// └──────────────────┴─────────────────────────┘
	// status bar (2 lines)

	leftWidth := m.width * 2 / 5
	middleWidth := m.width / 4
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := (m.height - 4) * 3 / 5
	bottomHeight := m.height - topHeight - 4

	m.marketPanel.SetSize(leftWidth, topHeight)
	m.holdingsPanel.SetSize(middleWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.marketPanel.View(),
		m.holdingsPanel.View(),
		m.chartPanel.View(),
	)

	m.eventsPanel.SetSize(leftWidth, bottomHeight)
	m.orderInputPanel.SetSize(m.width-leftWidth, bottomHeight)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.eventsPanel.View(),
		m.orderInputPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderGameBar(), m.renderStatusBar())
}

// renderGameBar shows the calendar, progress and account summary.
func (m *Model) renderGameBar() string {
	snap := m.snap
	parts := []string{
		snap.Date.Format("Jan 02, 2006"),
		fmt.Sprintf("Year %.2f", snap.YearsElapsed()),
		fmt.Sprintf("Day %d/%d (%.1f%%)", snap.DayIndex, snap.HorizonDays, snap.Progress()*100),
		"Cash " + styles.FormatMoney(snap.Cash),
		"Value " + styles.FormatMoney(snap.Value),
		"P&L " + styles.FormatSigned(snap.TotalPL),
	}
	if r := m.game.Runner(); r != nil && r.Enabled() {
		parts = append(parts, styles.BuyStyle.Render("signals on"))
	} else {
		parts = append(parts, styles.SellStyle.Render("signals off"))
	}
	switch {
	case snap.Won && !snap.KeepPlaying:
		parts = append(parts, styles.WinStyle.Render("WINNER"))
	case snap.Paused:
		parts = append(parts, styles.PausedStyle.Render("PAUSED"))
	case snap.KeepPlaying:
		parts = append(parts, styles.PausedStyle.Render("ENDLESS"))
	}
	return styles.StatusBarStyle.Width(m.width).Render(strings.Join(parts, " │ "))
}

func (m *Model) renderStatusBar() string {
	bindings := []key.Binding{keys.Pause, keys.Day, keys.Keep, keys.Restart, keys.Clear, keys.Signals, keys.Next, keys.Quit}
	help := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		help = append(help, styles.StatusBarKeyStyle.Render(h.Key)+styles.StatusBarDescStyle.Render(" "+h.Desc))
	}
	line := strings.Join(help, " │ ")

	if m.toast != nil {
		style := styles.EventNormalStyle
		if m.toast.Kind.Severe() {
			style = styles.EventSevereStyle
		}
		line += " │ " + style.Render(m.toast.Title+": "+m.toast.Message)
	}
	if m.statusMsg != "" {
		status := m.statusMsg
		if m.statusErr {
			status = styles.ErrorStyle.Render(status)
		}
		line += " │ " + status
	}
	return styles.StatusBarStyle.Width(m.width).Render(line)
}

func (m *Model) setStatus(err error, format ...any) {
	if err != nil {
		m.statusMsg, m.statusErr = "❌ "+describeError(err), true
		return
	}
	m.statusErr = false
	if len(format) > 0 {
		m.statusMsg = fmt.Sprintf(format[0].(string), format[1:]...)
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrMarketPaused):
		return "Market is paused"
	case errors.Is(err, session.ErrInsufficientFunds):
		return "Not enough cash"
	case errors.Is(err, session.ErrInsufficientShares):
		return "Not enough shares"
	case errors.Is(err, session.ErrHorizonExceeded):
		return "Out of trading days"
	case errors.Is(err, session.ErrNotWon):
		return "Reach the goal first"
	}
	return err.Error()
}

func describeFill(f portfolio.Fill) string {
	verb := "Bought"
	if f.Side == portfolio.SideSell {
		verb = "Sold"
	}
	return fmt.Sprintf("✓ %s %d %s @ %s", verb, f.Quantity, f.Symbol, f.Price.StringFixed(2))
}

func (m *Model) submitOrder(order panels.OrderSubmitMsg) tea.Cmd {
	sess := m.game.Session()
	return func() tea.Msg {
		var err error
		if order.Side == portfolio.SideBuy {
			_, err = sess.Buy(order.Symbol, order.Quantity)
		} else {
			_, err = sess.Sell(order.Symbol, order.Quantity)
		}
		if err != nil {
			return orderResultMsg{message: "❌ Order failed: " + describeError(err), err: true}
		}
		// the fill itself is reported by the trade update
		return nil
	}
}

func (m *Model) listenUpdates() tea.Cmd {
	ch := m.updates.C()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func (m *Model) listenEvents(sess *session.Session) tea.Cmd {
	ch, id := sess.News().Events(), sess.ID()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{session: id, event: ev}
	}
}

// listenSignals waits for the next trade decision of r. It returns nil once
// r is closed, which happens on restart.
func (m *Model) listenSignals(r *runner.Runner) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev := <-r.Events():
			return signalMsg{runner: r, event: ev}
		case <-r.Done():
			return nil
		}
	}
}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// updateMsg carries a session notification.
type updateMsg session.Update

// eventMsg carries a market event from the session's event feed.
type eventMsg struct {
	session uuid.UUID
	event   news.MarketEvent
}

// signalMsg carries a trade decision from the signal runner.
type signalMsg struct {
	runner *runner.Runner
	event  trader.TraderEvent
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

// orderResultMsg is sent after a rejected order.
type orderResultMsg struct {
	message string
	err     bool
}
