package session

import (
	"sync/atomic"

	"github.com/zappabad/moodmarket/internal/news"
	"github.com/zappabad/moodmarket/internal/portfolio"
)

// Reason says why an Update was published.
type Reason string

const (
	ReasonTick    Reason = "tick"
	ReasonShock   Reason = "shock"
	ReasonTrade   Reason = "trade"
	ReasonRefresh Reason = "refresh"
	ReasonDay     Reason = "day"
	ReasonPause   Reason = "pause"
	ReasonWin     Reason = "win"
	ReasonSelect  Reason = "select"
)

// Update is delivered to notifiers after every completed mutation.
type Update struct {
	Reason   Reason
	Snapshot Snapshot
	Event    *news.MarketEvent // set for shocks
	Fill     *portfolio.Fill   // set for trades
}

// Notifier receives updates. It is called outside the session lock and
// must not block.
type Notifier interface {
	OnMarketChanged(Update)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Update)

// OnMarketChanged implements Notifier.
func (f NotifierFunc) OnMarketChanged(u Update) { f(u) }

// ChannelNotifier forwards updates to a buffered channel, dropping them
// when the reader falls behind.
type ChannelNotifier struct {
	ch      chan Update
	dropped atomic.Int64
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelNotifier{ch: make(chan Update, buffer)}
}

// OnMarketChanged implements Notifier.
func (n *ChannelNotifier) OnMarketChanged(u Update) {
	select {
	case n.ch <- u:
	default:
		n.dropped.Add(1)
	}
}

// C returns the update channel.
func (n *ChannelNotifier) C() <-chan Update { return n.ch }

// Dropped returns the number of updates dropped.
func (n *ChannelNotifier) Dropped() int64 { return n.dropped.Load() }

// OrderObserver is told about every order attempt, accepted or not.
type OrderObserver interface {
	ObserveOrder(side portfolio.Side, err error)
}
