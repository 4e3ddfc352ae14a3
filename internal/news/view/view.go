package view

import (
	"sync"

	"github.com/zappabad/moodmarket/internal/news"
)

// DefaultCapacity is the number of events retained.
const DefaultCapacity = 50

// EventLog keeps the most recent market events in a ring buffer.
type EventLog struct {
	mu    sync.RWMutex
	buf   []news.MarketEvent
	size  int
	start int
	count int
}

// NewEventLog creates an EventLog retaining up to capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventLog{
		buf:  make([]news.MarketEvent, capacity),
		size: capacity,
	}
}

// Append adds ev, evicting the oldest entry when full.
func (v *EventLog) Append(ev news.MarketEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.count < v.size {
		v.buf[(v.start+v.count)%v.size] = ev
		v.count++
		return
	}
	v.buf[v.start] = ev
	v.start = (v.start + 1) % v.size
}

// Latest returns up to n most recent events, oldest first.
func (v *EventLog) Latest(n int) []news.MarketEvent {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if n <= 0 || v.count == 0 {
		return nil
	}
	if n > v.count {
		n = v.count
	}

	out := make([]news.MarketEvent, n)
	first := (v.start + (v.count - n)) % v.size
	for i := 0; i < n; i++ {
		out[i] = v.buf[(first+i)%v.size]
	}
	return out
}

// Clear drops every retained event.
func (v *EventLog) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.buf)
	v.start = 0
	v.count = 0
}

// Count returns the number of retained events.
func (v *EventLog) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

// Capacity returns the retention limit.
func (v *EventLog) Capacity() int {
	return v.size
}
