package clock

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock. Tasks run on the
// goroutine calling Advance or Run.
type Manual struct {
	mu  sync.Mutex
	now time.Time
	q   queue
}

// NewManual creates a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Every implements Scheduler.
func (m *Manual) Every(name string, period time.Duration, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.add(name, period, fn, m.now)
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, running every task that comes
// due in time order. It returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		t := m.q.earliest()
		if t == nil || t.next.After(target) {
			m.now = target
			m.mu.Unlock()
			return ran
		}
		m.now = t.next
		t.next = t.next.Add(t.period)
		fn := t.fn
		m.mu.Unlock()

		fn()
		ran++
	}
}

// Run invokes the named task immediately without moving the clock.
func (m *Manual) Run(name string) bool {
	m.mu.Lock()
	t := m.q.find(name)
	m.mu.Unlock()
	if t == nil {
		return false
	}
	t.fn()
	return true
}

// Tasks returns the registered task names in registration order.
func (m *Manual) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.names()
}
