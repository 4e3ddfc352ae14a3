package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/tui/styles"
)

// HoldingsPanel shows the cash balance and every open position valued at
// the live price.
type HoldingsPanel struct {
	snap         session.Snapshot
	scrollOffset int
	focused      bool
	width        int
	height       int
}

// NewHoldingsPanel creates a new holdings panel.
func NewHoldingsPanel() *HoldingsPanel {
	return &HoldingsPanel{}
}

// Init initializes the panel.
func (p *HoldingsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *HoldingsPanel) Update(msg tea.Msg) (*HoldingsPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, upKey):
		if p.scrollOffset > 0 {
			p.scrollOffset--
		}
	case key.Matches(keyMsg, downKey):
		if p.scrollOffset < len(p.snap.Holdings)-1 {
			p.scrollOffset++
		}
	}
	return p, nil
}

// View renders the panel.
func (p *HoldingsPanel) View() string {
	var content strings.Builder

	label := func(s string) string { return styles.LabelStyle.Render(fmt.Sprintf("%-9s", s)) }
	summary := []string{
		label("Cash") + styles.PriceStyle.Render(styles.FormatMoney(p.snap.Cash)),
		label("Value") + styles.PriceStyle.Render(styles.FormatMoney(p.snap.Value)),
		label("Realized") + styles.FormatSigned(p.snap.RealizedPL),
		label("Open") + styles.FormatSigned(p.snap.UnrealizedPL),
		label("Total") + styles.FormatSigned(p.snap.TotalPL),
	}
	content.WriteString(strings.Join(summary, "\n"))
	content.WriteString("\n\n")

	header := fmt.Sprintf("%-6s %7s %9s %9s %13s", "Symbol", "Qty", "AvgCost", "Price", "P&L")
	content.WriteString(styles.HeaderStyle.Render(header))

	holdings := p.snap.Holdings
	if len(holdings) == 0 {
		content.WriteString("\n")
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("No positions"))
	}

	visible := max(p.height-11, 1)
	start := min(p.scrollOffset, max(len(holdings)-1, 0))
	end := min(start+visible, len(holdings))
	for _, h := range holdings[start:end] {
		row := fmt.Sprintf("%-6s %s %9s %9s %s",
			h.Symbol,
			styles.SizeStyle.Render(fmt.Sprintf("%7d", h.Quantity)),
			h.AverageCost().StringFixed(2),
			styles.FormatPrice(h.Price),
			fmt.Sprintf("%13s", styles.FormatSigned(h.UnrealizedPL)),
		)
		content.WriteString("\n")
		content.WriteString(styles.RowStyle.Render(row))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("💼 Portfolio", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *HoldingsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *HoldingsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the valuation shown.
func (p *HoldingsPanel) SetSnapshot(snap session.Snapshot) {
	p.snap = snap
	if p.scrollOffset >= len(snap.Holdings) {
		p.scrollOffset = max(len(snap.Holdings)-1, 0)
	}
}
