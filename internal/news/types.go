package news

import (
	"time"

	"github.com/google/uuid"

	"github.com/zappabad/moodmarket/internal/market"
)

// Kind classifies a market event.
type Kind string

const (
	KindCrash        Kind = "crash"
	KindRecession    Kind = "recession"
	KindEarningsGood Kind = "earnings-good"
	KindEarningsBad  Kind = "earnings-bad"
	KindWhale        Kind = "buffett"
)

// Severe reports whether the event moved prices down.
func (k Kind) Severe() bool {
	switch k {
	case KindCrash, KindRecession, KindEarningsBad:
		return true
	}
	return false
}

// MarketEvent is one entry in the event log.
type MarketEvent struct {
	ID      uuid.UUID
	Time    time.Time
	Kind    Kind
	Symbol  market.Symbol // set only when a single instrument was affected
	Title   string
	Message string
}
