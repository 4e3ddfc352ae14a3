package strategy

import (
	"context"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/internal/trader"
)

// PositionReader provides read-only access to what the signals trade.
type PositionReader interface {
	Selected() (market.Symbol, bool)
	Holding(sym market.Symbol) int64
}

// OrderSender places orders through the session's validation.
type OrderSender interface {
	Buy(sym market.Symbol, qty int64) (portfolio.Fill, error)
	Sell(sym market.Symbol, qty int64) (portfolio.Fill, error)
}

// Session is everything a signal runner needs.
type Session interface {
	PositionReader
	OrderSender
}

// SignalSource is polled by the runner for the producer's latest reading.
type SignalSource interface {
	// Next returns the current reading, or ok=false when there is none.
	Next(ctx context.Context) (sig trader.Signal, ok bool)
}
