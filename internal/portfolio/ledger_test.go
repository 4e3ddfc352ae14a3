package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/moodmarket/internal/market"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestBuySellRoundTripIsFlat(t *testing.T) {
	l := NewLedger(dec("100000"))

	_, err := l.Buy("AAPL", 37, 175.53)
	require.NoError(t, err)
	fill, err := l.Sell("AAPL", 37, 175.53)
	require.NoError(t, err)

	assertDecimal(t, "0", fill.Realized)
	assertDecimal(t, "0", l.RealizedPL())
	assertDecimal(t, "100000", l.Cash())
	_, ok := l.Position("AAPL")
	assert.False(t, ok)
}

func TestWeightedAverageSurvivesPartialSell(t *testing.T) {
	l := NewLedger(dec("100000"))

	_, err := l.Buy("MSFT", 10, 100)
	require.NoError(t, err)
	_, err = l.Buy("MSFT", 10, 200)
	require.NoError(t, err)

	pos, ok := l.Position("MSFT")
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.Quantity)
	assertDecimal(t, "150", pos.AverageCost())

	fill, err := l.Sell("MSFT", 5, 300)
	require.NoError(t, err)
	assertDecimal(t, "750", fill.Realized)

	pos, ok = l.Position("MSFT")
	require.True(t, ok)
	assert.Equal(t, int64(15), pos.Quantity)
	assertDecimal(t, "150", pos.AverageCost())
	assertDecimal(t, "2250", pos.CostBasis)
	assertDecimal(t, "750", l.RealizedPL())
}

func TestCostBasisIsQuantityTimesAverage(t *testing.T) {
	l := NewLedger(dec("100000"))
	_, err := l.Buy("NVDA", 3, 495.2)
	require.NoError(t, err)
	_, err = l.Buy("NVDA", 7, 510.45)
	require.NoError(t, err)
	_, err = l.Sell("NVDA", 4, 400)
	require.NoError(t, err)

	pos, _ := l.Position("NVDA")
	product := pos.AverageCost().Mul(decimal.NewFromInt(pos.Quantity))
	assert.True(t, product.Sub(pos.CostBasis).Abs().LessThan(dec("0.000001")))

	// Selling the rest releases the exact remaining basis.
	_, err = l.Sell("NVDA", 6, 400)
	require.NoError(t, err)
	spent := dec("495.2").Mul(dec("3")).Add(dec("510.45").Mul(dec("7")))
	assertDecimal(t, dec("4000").Sub(spent).String(), l.RealizedPL())
}

func TestBuyInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	l := NewLedger(dec("1000"))
	_, err := l.Buy("TSLA", 2, 250)
	require.NoError(t, err)

	_, err = l.Buy("TSLA", 3, 250)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assertDecimal(t, "500", l.Cash())
	pos, _ := l.Position("TSLA")
	assert.Equal(t, int64(2), pos.Quantity)
	assertDecimal(t, "500", pos.CostBasis)
}

func TestBuyExactCashIsAllowed(t *testing.T) {
	l := NewLedger(dec("500"))
	_, err := l.Buy("TSLA", 2, 250)
	require.NoError(t, err)
	assert.True(t, l.Cash().IsZero())
}

func TestInvalidOrders(t *testing.T) {
	l := NewLedger(dec("1000"))

	_, err := l.Buy("AAPL", 0, 10)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = l.Sell("AAPL", -1, 10)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = l.Buy("AAPL", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = l.Sell("AAPL", 1, 10)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = l.Buy("AAPL", 2, 10)
	require.NoError(t, err)
	_, err = l.Sell("AAPL", 3, 10)
	assert.ErrorIs(t, err, ErrInsufficientShares)
	assert.Equal(t, int64(2), l.Quantity("AAPL"))
	assertDecimal(t, "980", l.Cash())
}

func TestValuationAndPL(t *testing.T) {
	l := NewLedger(dec("10000"))
	_, err := l.Buy("AAPL", 10, 100)
	require.NoError(t, err)
	_, err = l.Buy("META", 5, 200)
	require.NoError(t, err)
	_, err = l.Sell("META", 2, 250)
	require.NoError(t, err)

	prices := map[market.Symbol]float64{"AAPL": 110, "META": 180}

	// cash 10000 - 1000 - 1000 + 500 = 8500; holdings 1100 + 540
	assertDecimal(t, "10140", l.Value(prices))
	// (1100-1000) + (540-600)
	assertDecimal(t, "40", l.Unrealized(prices))
	assertDecimal(t, "100", l.RealizedPL())
	assertDecimal(t, "140", l.Total(prices))

	positions := l.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, market.Symbol("AAPL"), positions[0].Symbol)
	assert.Equal(t, "sell", SideSell.String())
}
