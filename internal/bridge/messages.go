package bridge

import (
	"time"

	"github.com/zappabad/moodmarket/internal/news"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
)

// Message types sent to clients.
const (
	TypeSnapshot = "snapshot"
	TypeSignal   = "signal"
	TypeError    = "error"
)

// Quote is one instrument's live state on the wire.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
}

// Event is a market event on the wire.
type Event struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Symbol  string    `json:"symbol,omitempty"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Snapshot is a session update on the wire. Money is a decimal string.
type Snapshot struct {
	Type     string  `json:"type"`
	Reason   string  `json:"reason"`
	Session  string  `json:"session"`
	Day      int     `json:"day"`
	Date     string  `json:"date"`
	Cash     string  `json:"cash"`
	Value    string  `json:"value"`
	TotalPL  string  `json:"total_pl"`
	Paused   bool    `json:"paused"`
	Won      bool    `json:"won"`
	Selected string  `json:"selected,omitempty"`
	Quotes   []Quote `json:"quotes"`
	Event    *Event  `json:"event,omitempty"`
}

// SignalResult reports what happened to an inbound signal.
type SignalResult struct {
	Type       string  `json:"type"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Outcome    string  `json:"outcome"`
	Symbol     string  `json:"symbol,omitempty"`
	Message    string  `json:"message"`
}

// ErrorMessage reports a malformed inbound frame.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newSnapshot(reason session.Reason, snap session.Snapshot, ev *news.MarketEvent) Snapshot {
	out := Snapshot{
		Type:     TypeSnapshot,
		Reason:   string(reason),
		Session:  snap.SessionID.String(),
		Day:      snap.DayIndex,
		Date:     snap.Date.Format(time.DateOnly),
		Cash:     snap.Cash.StringFixed(2),
		Value:    snap.Value.StringFixed(2),
		TotalPL:  snap.TotalPL.StringFixed(2),
		Paused:   snap.Paused,
		Won:      snap.Won,
		Selected: string(snap.Selected),
		Quotes:   make([]Quote, 0, len(snap.Market.Order)),
	}
	for _, sym := range snap.Market.Order {
		st := snap.Market.BySymbol[sym]
		out.Quotes = append(out.Quotes, Quote{
			Symbol: string(sym),
			Price:  st.Price,
			Open:   st.Open,
			High:   st.High,
			Low:    st.Low,
			Volume: st.Volume,
		})
	}
	if ev != nil {
		out.Event = &Event{
			ID:      ev.ID.String(),
			Kind:    string(ev.Kind),
			Symbol:  string(ev.Symbol),
			Title:   ev.Title,
			Message: ev.Message,
			Time:    ev.Time,
		}
	}
	return out
}

func newSignalResult(ev trader.TraderEvent) SignalResult {
	return SignalResult{
		Type:       TypeSignal,
		Kind:       string(ev.Signal.Kind),
		Confidence: ev.Signal.Confidence,
		Outcome:    ev.Type.String(),
		Symbol:     string(ev.Symbol),
		Message:    ev.Message,
	}
}
