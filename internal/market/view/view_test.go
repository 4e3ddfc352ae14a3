package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/market/series"
)

func newTestView(t *testing.T, windowCap int) *MarketView {
	t.Helper()
	v := NewMarketView([]market.Symbol{"AAPL", "TSLA"}, windowCap)
	require.NoError(t, v.Reset("AAPL", series.DayWindow{
		Open: 100, High: 102, Low: 99, Close: 101,
		History: []float64{98, 100, 101}, Volume: 10_000_000,
	}))
	return v
}

func TestSetPriceWidensRange(t *testing.T) {
	v := newTestView(t, 50)

	prev, err := v.SetPrice("AAPL", 110)
	require.NoError(t, err)
	assert.Equal(t, 101.0, prev)

	_, err = v.SetPrice("AAPL", 90)
	require.NoError(t, err)

	st, err := v.State("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 90.0, st.Price)
	assert.Equal(t, 110.0, st.High)
	assert.Equal(t, 90.0, st.Low)
	assert.Equal(t, []float64{98, 100, 101, 110, 90}, st.History)
	assert.InDelta(t, -10.0, st.ChangePercent(), 1e-9)
}

func TestSetPriceCapsHistory(t *testing.T) {
	v := newTestView(t, 4)
	for i := 1; i <= 10; i++ {
		_, err := v.SetPrice("AAPL", float64(200+i))
		require.NoError(t, err)
	}
	st, err := v.State("AAPL")
	require.NoError(t, err)
	assert.Equal(t, []float64{207, 208, 209, 210}, st.History)
}

func TestResetTruncatesLongHistory(t *testing.T) {
	v := NewMarketView([]market.Symbol{"X"}, 2)
	require.NoError(t, v.Reset("X", series.DayWindow{Close: 3, Open: 2, High: 3, Low: 2, History: []float64{1, 2, 3}}))
	st, err := v.State("X")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, st.History)
}

func TestSetPriceRejectsBadInput(t *testing.T) {
	v := newTestView(t, 50)

	_, err := v.SetPrice("AAPL", 0)
	assert.ErrorIs(t, err, ErrNonPositivePrice)
	_, err = v.SetPrice("NOPE", 10)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.ErrorIs(t, v.AddVolume("NOPE", 1), ErrUnknownSymbol)

	p, err := v.Price("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 101.0, p)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	v := newTestView(t, 50)
	require.NoError(t, v.AddVolume("AAPL", 500))

	snap := v.Snapshot()
	assert.Equal(t, []market.Symbol{"AAPL", "TSLA"}, snap.Order)
	assert.Equal(t, int64(10_000_500), snap.BySymbol["AAPL"].Volume)

	snap.BySymbol["AAPL"].History[0] = -1
	st, _ := v.State("AAPL")
	assert.Equal(t, 98.0, st.History[0])
	assert.Equal(t, 101.0, snap.Prices()["AAPL"])
}
