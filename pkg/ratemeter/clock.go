package ratemeter

import (
	"sync"
	"time"
)

// Clock is the time source consulted by limiters when the caller does not
// supply an instant explicitly. It must be monotonic non-decreasing for the
// leaky bucket's elapsed-time arithmetic to stay exact; GCRA tolerates
// regressions on its own.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
}

// SystemClock returns the process-wide default clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FakeClock is a manually advanced clock for deterministic tests.
// It is safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock pinned at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the clock's current instant.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Advancing by a negative duration
// moves it backward, which tests use to exercise regression handling.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
