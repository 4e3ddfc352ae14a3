package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
	marketview "github.com/zappabad/moodmarket/internal/market/view"
	"github.com/zappabad/moodmarket/tui/styles"
)

// Candle is one trading day.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Day   int
}

// DailyCandles builds one candle per day for the days up to and including
// dayIndex, at most count of them. A day opens at the previous close. The
// last candle is the live day when live is set.
func DailyCandles(s series.Series, dayIndex, count int, live *marketview.StockState) []Candle {
	if count <= 0 || dayIndex < 0 || dayIndex >= s.Len() {
		return nil
	}
	first := max(0, dayIndex-count+1)
	candles := make([]Candle, 0, dayIndex-first+1)
	for day := first; day <= dayIndex; day++ {
		cl := s[day]
		op := cl
		if day > 0 {
			op = s[day-1]
		}
		candles = append(candles, Candle{
			Open:  op,
			High:  max(op, cl),
			Low:   min(op, cl),
			Close: cl,
			Day:   day,
		})
	}
	if live != nil {
		candles[len(candles)-1] = Candle{
			Open:  live.Open,
			High:  live.High,
			Low:   live.Low,
			Close: live.Price,
			Day:   dayIndex,
		}
	}
	return candles
}

// CandlestickPanel charts daily candles of one instrument.
type CandlestickPanel struct {
	symbol   market.Symbol
	series   series.Series
	dayIndex int
	live     *marketview.StockState

	focused bool
	width   int
	height  int

	maxCandles int
}

// NewCandlestickPanel creates a new candlestick chart panel.
func NewCandlestickPanel() *CandlestickPanel {
	return &CandlestickPanel{maxCandles: 60}
}

// Init initializes the panel.
func (p *CandlestickPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *CandlestickPanel) Update(msg tea.Msg) (*CandlestickPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *CandlestickPanel) View() string {
	name := "No instrument"
	if p.symbol != "" {
		name = string(p.symbol)
	}

	var content strings.Builder
	chartWidth := p.width - 12
	chartHeight := max(p.height-6, 5)

	candles := DailyCandles(p.series, p.dayIndex, p.maxCandles, p.live)
	if len(candles) == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("Select an instrument..."))
	} else {
		content.WriteString(renderCandles(chartWidth, chartHeight, candles))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle(fmt.Sprintf("📉 Chart - %s", name), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func renderCandles(width, height int, candles []Candle) string {
	// 9 chars of price axis plus a separator; each candle takes 2 columns
	show := max(max(width-10, 10)/2, 1)
	if len(candles) > show {
		candles = candles[len(candles)-show:]
	}

	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = max(hi*0.01, 0.01)
	}
	lo, hi = lo-pad, hi+pad

	rows := max(height-3, 5)
	var b strings.Builder
	for row := 0; row < rows; row++ {
		price := yToPrice(row, lo, hi, rows)
		b.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", styles.FormatPrice(price))))
		for _, c := range candles {
			style := styles.CandleUpStyle
			if c.Close < c.Open {
				style = styles.CandleDownStyle
			}
			b.WriteString(style.Render(string(candleChar(c, price, (hi-lo)/float64(rows*2)))))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.ChartAxisStyle.Render("─────────┴"))
	for range candles {
		b.WriteString(styles.ChartAxisStyle.Render("──"))
	}
	b.WriteString("\n")
	b.WriteString(styles.ChartLabelStyle.Render(
		fmt.Sprintf("          day %d … %d", candles[0].Day, candles[len(candles)-1].Day)))
	return b.String()
}

// candleChar returns the glyph for candle c on the row at price.
func candleChar(c Candle, price, tolerance float64) rune {
	top, bottom := max(c.Open, c.Close), min(c.Open, c.Close)
	switch {
	case price <= top+tolerance && price >= bottom-tolerance:
		return '┃'
	case price <= c.High+tolerance && price > top:
		return '│'
	case price >= c.Low-tolerance && price < bottom:
		return '│'
	}
	return ' '
}

func yToPrice(y int, lo, hi float64, height int) float64 {
	if height <= 1 {
		return lo
	}
	return hi - float64(y)/float64(height-1)*(hi-lo)
}

// SetFocus sets the focus state of the panel.
func (p *CandlestickPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CandlestickPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSeries sets the instrument to chart and its generated history.
func (p *CandlestickPanel) SetSeries(sym market.Symbol, s series.Series) {
	p.symbol = sym
	p.series = s
	p.live = nil
}

// SetDay sets the current day and its live intraday state.
func (p *CandlestickPanel) SetDay(dayIndex int, live *marketview.StockState) {
	p.dayIndex = dayIndex
	p.live = live
}

// Symbol returns the charted instrument.
func (p *CandlestickPanel) Symbol() market.Symbol {
	return p.symbol
}
