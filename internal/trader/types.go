package trader

import (
	"errors"
	"fmt"
	"time"

	"github.com/zappabad/moodmarket/internal/market"
	"github.com/zappabad/moodmarket/internal/portfolio"
)

var ErrUnknownSignal = errors.New("unknown signal kind")

// SignalKind is what the external producer asks for.
type SignalKind string

const (
	SignalBuy  SignalKind = "buy-signal"
	SignalSell SignalKind = "sell-signal"
)

// ParseSignalKind validates a wire value.
func ParseSignalKind(s string) (SignalKind, error) {
	switch k := SignalKind(s); k {
	case SignalBuy, SignalSell:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// Signal is one reading from the producer.
type Signal struct {
	Kind       SignalKind `json:"kind"`
	Confidence float64    `json:"confidence"`
}

// TraderEventType indicates the outcome of a signal.
type TraderEventType int

const (
	TraderEventExecuted TraderEventType = iota
	TraderEventIgnored
	TraderEventRejected
)

func (t TraderEventType) String() string {
	switch t {
	case TraderEventExecuted:
		return "executed"
	case TraderEventIgnored:
		return "ignored"
	case TraderEventRejected:
		return "rejected"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// TraderEvent reports what the runner did with a signal.
type TraderEvent struct {
	Time    time.Time
	Type    TraderEventType
	Signal  Signal
	Symbol  market.Symbol
	Fill    *portfolio.Fill // set when executed
	Message string
}
