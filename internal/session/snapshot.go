package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zappabad/moodmarket/internal/market"
	marketview "github.com/zappabad/moodmarket/internal/market/view"
	"github.com/zappabad/moodmarket/internal/portfolio"
)

// Holding is a position valued at the live price.
type Holding struct {
	portfolio.Position
	Price        float64
	MarketValue  decimal.Decimal
	UnrealizedPL decimal.Decimal
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	SessionID uuid.UUID
	Market    marketview.MarketSnapshot

	Cash         decimal.Decimal
	Value        decimal.Decimal
	RealizedPL   decimal.Decimal
	UnrealizedPL decimal.Decimal
	TotalPL      decimal.Decimal
	Holdings     []Holding

	DayIndex    int
	HorizonDays int
	Date        time.Time

	Paused      bool
	Won         bool
	KeepPlaying bool
	Selected    market.Symbol
}

// YearsElapsed returns the simulated time passed in years.
func (s Snapshot) YearsElapsed() float64 {
	return float64(s.DayIndex) / 365.25
}

// Progress returns the fraction of the horizon used, in [0, 1).
func (s Snapshot) Progress() float64 {
	if s.HorizonDays == 0 {
		return 0
	}
	return float64(s.DayIndex) / float64(s.HorizonDays)
}

// Holding returns the holding in sym, if any.
func (s Snapshot) Holding(sym market.Symbol) (Holding, bool) {
	for _, h := range s.Holdings {
		if h.Symbol == sym {
			return h, true
		}
	}
	return Holding{}, false
}
