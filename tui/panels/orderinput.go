package panels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/tui/styles"
)

// OrderInputField represents the currently focused input field.
type OrderInputField int

const (
	FieldSymbol OrderInputField = iota
	FieldSide
	FieldQuantity
	FieldSubmit
)

var (
	nextFieldKey = key.NewBinding(key.WithKeys("down"))
	prevFieldKey = key.NewBinding(key.WithKeys("up"))
	leftKey      = key.NewBinding(key.WithKeys("left"))
	rightKey     = key.NewBinding(key.WithKeys("right"))
	escKey       = key.NewBinding(key.WithKeys("esc"))
)

var sides = []portfolio.Side{portfolio.SideBuy, portfolio.SideSell}

// OrderInputPanel handles manual order entry with symbol autocomplete.
type OrderInputPanel struct {
	instruments   []market.Instrument
	symbolInput   textinput.Model
	quantityInput textinput.Model

	showDropdown     bool
	dropdownFiltered []market.Instrument
	dropdownIndex    int

	sideIndex    int
	currentField OrderInputField
	selected     *market.Instrument
	errMsg       string

	focused bool
	width   int
	height  int
}

// NewOrderInputPanel creates a new order input panel.
func NewOrderInputPanel(instruments []market.Instrument) *OrderInputPanel {
	symbolInput := textinput.New()
	symbolInput.Placeholder = "Search symbol..."
	symbolInput.PlaceholderStyle = styles.PlaceholderStyle
	symbolInput.Width = 15
	symbolInput.CharLimit = 10

	quantityInput := textinput.New()
	quantityInput.Placeholder = "Shares"
	quantityInput.PlaceholderStyle = styles.PlaceholderStyle
	quantityInput.Width = 10
	quantityInput.CharLimit = 12

	return &OrderInputPanel{
		instruments:      instruments,
		symbolInput:      symbolInput,
		quantityInput:    quantityInput,
		dropdownFiltered: instruments,
		currentField:     FieldSymbol,
	}
}

// Init initializes the panel.
func (p *OrderInputPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *OrderInputPanel) Update(msg tea.Msg) (*OrderInputPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, nextFieldKey):
			p.nextField()
			return p, nil
		case key.Matches(keyMsg, prevFieldKey):
			p.prevField()
			return p, nil
		case key.Matches(keyMsg, selectKey):
			if p.currentField == FieldSubmit {
				return p, p.submitOrder()
			}
			p.nextField()
			return p, nil
		case key.Matches(keyMsg, escKey):
			p.showDropdown = false
			return p, nil
		case key.Matches(keyMsg, leftKey):
			if p.showDropdown {
				p.dropdownIndex = max(p.dropdownIndex-1, 0)
				return p, nil
			}
			if p.currentField == FieldSide {
				p.sideIndex = max(p.sideIndex-1, 0)
				return p, nil
			}
		case key.Matches(keyMsg, rightKey):
			if p.showDropdown {
				p.dropdownIndex = min(p.dropdownIndex+1, max(len(p.dropdownFiltered)-1, 0))
				return p, nil
			}
			if p.currentField == FieldSide {
				p.sideIndex = min(p.sideIndex+1, len(sides)-1)
				return p, nil
			}
		}
	}

	var cmd tea.Cmd
	switch p.currentField {
	case FieldSymbol:
		p.symbolInput, cmd = p.symbolInput.Update(msg)
		p.filterDropdown(p.symbolInput.Value())
		p.showDropdown = p.symbolInput.Value() != ""
	case FieldQuantity:
		p.quantityInput, cmd = p.quantityInput.Update(msg)
	}
	return p, cmd
}

// View renders the panel.
func (p *OrderInputPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Symbol", FieldSymbol, p.renderSymbolField()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Side", FieldSide, p.renderSideField()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Qty", FieldQuantity, p.quantityInput.View()))
	content.WriteString("\n\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	content.WriteString(submitStyle.Render("  [Place Order]  "))

	content.WriteString("\n\n")
	content.WriteString(p.renderOrderSummary())
	if p.errMsg != "" {
		content.WriteString("\n")
		content.WriteString(styles.ErrorStyle.Render(p.errMsg))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📝 Order Entry", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *OrderInputPanel) renderField(label string, field OrderInputField, inputView string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + inputView
}

func (p *OrderInputPanel) renderSymbolField() string {
	var b strings.Builder
	b.WriteString(p.symbolInput.View())

	if p.showDropdown && len(p.dropdownFiltered) > 0 {
		shown := min(len(p.dropdownFiltered), 5)
		items := make([]string, 0, shown)
		for i := 0; i < shown; i++ {
			inst := p.dropdownFiltered[i]
			style := styles.DropdownItemStyle
			if i == p.dropdownIndex {
				style = styles.DropdownSelectedStyle
			}
			items = append(items, style.Render(highlightMatch(string(inst.Symbol), p.symbolInput.Value())+" "+inst.Name))
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().MarginLeft(8).Render(
			styles.DropdownStyle.Render(lipgloss.JoinVertical(lipgloss.Left, items...))))
	}
	return b.String()
}

func (p *OrderInputPanel) renderSideField() string {
	items := make([]string, 0, len(sides))
	for i, side := range sides {
		style := styles.DropdownItemStyle
		if i == p.sideIndex {
			if p.currentField == FieldSide && p.focused {
				style = styles.DropdownSelectedStyle
			} else {
				style = styles.DropdownItemStyle.Bold(true)
			}
			if side == portfolio.SideBuy {
				style = style.Foreground(styles.BuyColor)
			} else {
				style = style.Foreground(styles.SellColor)
			}
		}
		items = append(items, style.Render(strings.ToUpper(side.String())))
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) renderOrderSummary() string {
	sym := "---"
	if p.selected != nil {
		sym = string(p.selected.Symbol)
	}
	side := sides[p.sideIndex]
	sideStyle := styles.BuyStyle
	if side == portfolio.SideSell {
		sideStyle = styles.SellStyle
	}
	qty := p.quantityInput.Value()
	if qty == "" {
		qty = "0"
	}
	return styles.HeaderStyle.Render("Order: ") +
		strings.Join([]string{sideStyle.Render(strings.ToUpper(side.String())), "x" + qty, sym}, " ")
}

func (p *OrderInputPanel) filterDropdown(query string) {
	query = strings.ToUpper(query)
	p.dropdownFiltered = nil
	p.dropdownIndex = 0
	for _, inst := range p.instruments {
		if strings.Contains(string(inst.Symbol), query) || strings.Contains(strings.ToUpper(inst.Name), query) {
			p.dropdownFiltered = append(p.dropdownFiltered, inst)
		}
	}
}

func highlightMatch(item, query string) string {
	idx := strings.Index(strings.ToUpper(item), strings.ToUpper(query))
	if query == "" || idx == -1 {
		return item
	}
	end := idx + len(query)
	return item[:idx] + styles.DropdownMatchStyle.Render(item[idx:end]) + item[end:]
}

func (p *OrderInputPanel) selectDropdownItem() {
	if p.dropdownIndex < len(p.dropdownFiltered) && p.symbolInput.Value() != "" {
		inst := p.dropdownFiltered[p.dropdownIndex]
		p.selected = &inst
		p.symbolInput.SetValue(string(inst.Symbol))
	}
}

func (p *OrderInputPanel) nextField() {
	p.showDropdown = false
	switch p.currentField {
	case FieldSymbol:
		p.selectDropdownItem()
		p.currentField = FieldSide
		p.symbolInput.Blur()
	case FieldSide:
		p.currentField = FieldQuantity
		p.quantityInput.Focus()
	case FieldQuantity:
		p.currentField = FieldSubmit
		p.quantityInput.Blur()
	case FieldSubmit:
		p.currentField = FieldSymbol
		p.symbolInput.Focus()
	}
}

func (p *OrderInputPanel) prevField() {
	p.showDropdown = false
	switch p.currentField {
	case FieldSymbol:
		p.currentField = FieldSubmit
		p.symbolInput.Blur()
	case FieldSide:
		p.currentField = FieldSymbol
		p.symbolInput.Focus()
	case FieldQuantity:
		p.currentField = FieldSide
		p.quantityInput.Blur()
	case FieldSubmit:
		p.currentField = FieldQuantity
		p.quantityInput.Focus()
	}
}

func (p *OrderInputPanel) submitOrder() tea.Cmd {
	p.errMsg = ""
	if p.selected == nil {
		p.errMsg = "pick a symbol"
		return nil
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(p.quantityInput.Value()), 10, 64)
	if err != nil || qty <= 0 {
		p.errMsg = "quantity must be a positive whole number"
		return nil
	}

	order := OrderSubmitMsg{
		Symbol:   p.selected.Symbol,
		Side:     sides[p.sideIndex],
		Quantity: qty,
	}
	return func() tea.Msg { return order }
}

// Editing reports whether keystrokes are going into a text field.
func (p *OrderInputPanel) Editing() bool {
	return p.focused && (p.currentField == FieldSymbol || p.currentField == FieldQuantity)
}

// SetFocus sets the focus state of the panel.
func (p *OrderInputPanel) SetFocus(focused bool) {
	p.focused = focused
	if !focused {
		p.symbolInput.Blur()
		p.quantityInput.Blur()
		return
	}
	switch p.currentField {
	case FieldSymbol:
		p.symbolInput.Focus()
	case FieldQuantity:
		p.quantityInput.Focus()
	}
}

// SetSize sets the panel dimensions.
func (p *OrderInputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetInstrument pre-fills the symbol field.
func (p *OrderInputPanel) SetInstrument(inst market.Instrument) {
	p.symbolInput.SetValue(string(inst.Symbol))
	p.selected = &inst
}

// Reset clears the input fields.
func (p *OrderInputPanel) Reset() {
	p.symbolInput.SetValue("")
	p.quantityInput.SetValue("")
	p.selected = nil
	p.currentField = FieldSymbol
	p.sideIndex = 0
	p.showDropdown = false
	p.errMsg = ""
}

// OrderSubmitMsg is sent when an order is submitted.
type OrderSubmitMsg struct {
	Symbol   market.Symbol
	Side     portfolio.Side
	Quantity int64
}
