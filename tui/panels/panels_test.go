package panels

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
	marketview "github.com/zappabad/moodmarket/internal/market/view"
	"github.com/zappabad/moodmarket/internal/news"
	"github.com/zappabad/moodmarket/internal/portfolio"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDailyCandles(t *testing.T) {
	s := series.Series{100, 110, 105, 120}

	candles := DailyCandles(s, 2, 10, nil)
	require.Len(t, candles, 3)
	assert.Equal(t, Candle{Open: 100, High: 100, Low: 100, Close: 100, Day: 0}, candles[0])
	assert.Equal(t, Candle{Open: 100, High: 110, Low: 100, Close: 110, Day: 1}, candles[1])
	assert.Equal(t, Candle{Open: 110, High: 110, Low: 105, Close: 105, Day: 2}, candles[2])

	candles = DailyCandles(s, 3, 2, nil)
	require.Len(t, candles, 2)
	assert.Equal(t, 2, candles[0].Day)

	live := &marketview.StockState{Price: 125, Open: 119, High: 126, Low: 118}
	candles = DailyCandles(s, 3, 2, live)
	assert.Equal(t, Candle{Open: 119, High: 126, Low: 118, Close: 125, Day: 3}, candles[1])

	assert.Nil(t, DailyCandles(s, 4, 10, nil))
	assert.Nil(t, DailyCandles(nil, 0, 10, nil))
}

func TestMarketPanelSelects(t *testing.T) {
	p := NewMarketPanel(market.DefaultInstruments())
	p.SetFocus(true)

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(InstrumentSelectedMsg)
	require.True(t, ok)
	assert.Equal(t, market.Symbol("MSFT"), msg.Instrument.Symbol)
}

func TestMarketPanelIgnoresKeysWhenBlurred(t *testing.T) {
	p := NewMarketPanel(market.DefaultInstruments())
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, market.Symbol("AAPL"), p.Cursor().Symbol)
}

func TestOrderInputSubmit(t *testing.T) {
	p := NewOrderInputPanel(market.DefaultInstruments())
	p.SetFocus(true)
	assert.True(t, p.Editing())

	p, _ = p.Update(runes("tsl"))
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter}) // symbol -> side
	assert.False(t, p.Editing())
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRight}) // sell
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter}) // side -> qty
	p, _ = p.Update(runes("25"))
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter}) // qty -> submit
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	order, ok := cmd().(OrderSubmitMsg)
	require.True(t, ok)
	assert.Equal(t, OrderSubmitMsg{Symbol: "TSLA", Side: portfolio.SideSell, Quantity: 25}, order)
}

func TestOrderInputSuggestsSymbols(t *testing.T) {
	p := NewOrderInputPanel(market.DefaultInstruments())
	p.SetSize(80, 20)
	p.SetFocus(true)

	p, _ = p.Update(runes("ama"))
	view := p.View()
	assert.Contains(t, view, "Amazon.com Inc.")
	assert.NotContains(t, view, "Tesla Inc.")
}

func TestOrderInputRejectsBadQuantity(t *testing.T) {
	p := NewOrderInputPanel(market.DefaultInstruments())
	p.SetSize(80, 20)
	p.SetFocus(true)
	p.SetInstrument(market.DefaultInstruments()[0])

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp}) // symbol -> submit
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, p.View(), "quantity must be")
}

func TestEventsPanelScrollsToNewest(t *testing.T) {
	p := NewEventsPanel()
	p.SetSize(60, 10)
	assert.Contains(t, p.View(), "No market events")

	events := make([]news.MarketEvent, 10)
	for i := range events {
		events[i] = news.MarketEvent{Kind: news.KindCrash, Title: "Market Crash", Message: "All stocks plummeted 50-75%!"}
	}
	p.SetEvents(events)
	assert.Equal(t, 10, p.Len())
	assert.Equal(t, 9, p.selectedIndex)
	assert.Equal(t, 10-p.visibleItems(), p.scrollOffset)
	assert.Contains(t, p.View(), "Market Crash")
}
