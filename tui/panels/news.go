package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/moodmarket/internal/news"
	"github.com/zappabad/moodmarket/tui/styles"
)

// EventsPanel displays the market event log, newest last.
type EventsPanel struct {
	events        []news.MarketEvent
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

// NewEventsPanel creates a new event log panel.
func NewEventsPanel() *EventsPanel {
	return &EventsPanel{}
}

// Init initializes the panel.
func (p *EventsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *EventsPanel) Update(msg tea.Msg) (*EventsPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, upKey):
		if p.selectedIndex > 0 {
			p.selectedIndex--
			if p.selectedIndex < p.scrollOffset {
				p.scrollOffset = p.selectedIndex
			}
		}
	case key.Matches(keyMsg, downKey):
		if p.selectedIndex < len(p.events)-1 {
			p.selectedIndex++
			visible := p.visibleItems()
			if p.selectedIndex >= p.scrollOffset+visible {
				p.scrollOffset = p.selectedIndex - visible + 1
			}
		}
	}
	return p, nil
}

func (p *EventsPanel) visibleItems() int {
	// each event takes two lines
	return max((p.height-4)/2, 1)
}

// View renders the panel.
func (p *EventsPanel) View() string {
	var content strings.Builder

	if len(p.events) == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("No market events"))
	} else {
		visible := p.visibleItems()
		start := min(p.scrollOffset, len(p.events)-1)
		end := min(start+visible, len(p.events))

		for i := start; i < end; i++ {
			ev := p.events[i]

			titleStyle := styles.EventNormalStyle
			if ev.Kind.Severe() {
				titleStyle = styles.EventSevereStyle
			}
			line := fmt.Sprintf("%s %s\n  %s",
				styles.TimeStyle.Render(ev.Time.Format("15:04:05")),
				titleStyle.Render(ev.Title),
				truncate(ev.Message, p.width-8),
			)
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}
			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}

		if len(p.events) > visible {
			content.WriteString("\n")
			content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).
				Render(fmt.Sprintf(" (%d/%d)", p.selectedIndex+1, len(p.events))))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📰 Market Events", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// SetFocus sets the focus state of the panel.
func (p *EventsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *EventsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetEvents replaces the events and scrolls to the newest.
func (p *EventsPanel) SetEvents(events []news.MarketEvent) {
	p.events = events
	p.selectedIndex = max(len(events)-1, 0)
	p.scrollOffset = max(len(events)-p.visibleItems(), 0)
}

// Len returns the number of events shown.
func (p *EventsPanel) Len() int {
	return len(p.events)
}
