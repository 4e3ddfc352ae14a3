// Package clock runs named periodic tasks. Loop drives them from one
// goroutine on wall-clock time; Manual drives them from a virtual clock
// so tests can single-step.
package clock

import (
	"errors"
	"time"
)

var ErrInvalidPeriod = errors.New("period must be positive")

// Scheduler registers periodic tasks.
type Scheduler interface {
	// Every runs fn once per period until the scheduler stops.
	Every(name string, period time.Duration, fn func()) error
}

type task struct {
	name   string
	period time.Duration
	next   time.Time
	seq    int
	fn     func()
}

// queue keeps tasks ordered by registration; due picks from it by time.
type queue struct {
	tasks []*task
	seq   int
}

func (q *queue) add(name string, period time.Duration, fn func(), now time.Time) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	q.tasks = append(q.tasks, &task{
		name:   name,
		period: period,
		next:   now.Add(period),
		seq:    q.seq,
		fn:     fn,
	})
	q.seq++
	return nil
}

// earliest returns the task due soonest. Ties go to the earliest registered.
func (q *queue) earliest() *task {
	var best *task
	for _, t := range q.tasks {
		if best == nil || t.next.Before(best.next) || (t.next.Equal(best.next) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (q *queue) find(name string) *task {
	for _, t := range q.tasks {
		if t.name == name {
			return t
		}
	}
	return nil
}

func (q *queue) names() []string {
	out := make([]string, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t.name)
	}
	return out
}
