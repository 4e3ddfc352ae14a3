package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/moodmarket/internal/market"
	marketview "github.com/zappabad/moodmarket/internal/market/view"
	"github.com/zappabad/moodmarket/tui/styles"
)

var (
	upKey     = key.NewBinding(key.WithKeys("up"))
	downKey   = key.NewBinding(key.WithKeys("down"))
	selectKey = key.NewBinding(key.WithKeys("enter"))
)

// MarketPanel lists live quotes for every instrument.
type MarketPanel struct {
	instruments   []market.Instrument
	snap          marketview.MarketSnapshot
	selected      market.Symbol
	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewMarketPanel creates a market panel over the catalog.
func NewMarketPanel(instruments []market.Instrument) *MarketPanel {
	return &MarketPanel{instruments: instruments}
}

// Init initializes the panel.
func (p *MarketPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel. Enter selects the instrument under
// the cursor for signal trading.
func (p *MarketPanel) Update(msg tea.Msg) (*MarketPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, upKey):
		if p.selectedIndex > 0 {
			p.selectedIndex--
		}
	case key.Matches(keyMsg, downKey):
		if p.selectedIndex < len(p.instruments)-1 {
			p.selectedIndex++
		}
	case key.Matches(keyMsg, selectKey):
		inst := p.Cursor()
		if inst.Symbol == "" {
			return p, nil
		}
		return p, func() tea.Msg { return InstrumentSelectedMsg{Instrument: inst} }
	}
	return p, nil
}

// View renders the panel.
func (p *MarketPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("  %-6s %10s %8s %10s %10s %8s",
		"Symbol", "Price", "Chg%", "High", "Low", "Vol(M)")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, inst := range p.instruments {
		st, ok := p.snap.BySymbol[inst.Symbol]

		marker := "  "
		if inst.Symbol == p.selected {
			marker = "▶ "
		}
		price, chg, high, low, vol := "-", "-", "-", "-", "-"
		chgStyle := styles.PriceStyle
		if ok {
			price = styles.FormatPrice(st.Price)
			chg = fmt.Sprintf("%+.2f%%", st.ChangePercent())
			chgStyle = styles.ChangeStyle(st.Change())
			high = styles.FormatPrice(st.High)
			low = styles.FormatPrice(st.Low)
			vol = fmt.Sprintf("%.1f", float64(st.Volume)/1e6)
		}

		row := fmt.Sprintf("%s%-6s %10s %s %10s %10s %8s",
			marker, inst.Symbol, price, chgStyle.Render(fmt.Sprintf("%8s", chg)), high, low, vol)

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(row))
		if i < len(p.instruments)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📈 Market", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *MarketPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *MarketPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the quotes and the selection marker.
func (p *MarketPanel) SetSnapshot(snap marketview.MarketSnapshot, selected market.Symbol) {
	p.snap = snap
	p.selected = selected
}

// Cursor returns the instrument under the cursor.
func (p *MarketPanel) Cursor() market.Instrument {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.instruments) {
		return p.instruments[p.selectedIndex]
	}
	return market.Instrument{}
}

// InstrumentSelectedMsg is sent when an instrument is picked for trading.
type InstrumentSelectedMsg struct {
	Instrument market.Instrument
}
