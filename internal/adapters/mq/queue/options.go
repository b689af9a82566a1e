package queue

import "github.com/jonboulle/clockwork"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued observations.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithClock sets the clock used to stamp enqueued items.
func WithClock(c clockwork.Clock) Option {
	return func(q *InMemoryQueue) {
		if c != nil {
			q.clock = c
		}
	}
}
