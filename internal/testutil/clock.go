package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant FixedClock starts at unless told otherwise.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a manually advanced wall clock for tests.
//
// Retirement timestamps, run records and package import times all come from a
// clock, so a FixedClock makes them byte-identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock reading at. A zero at means Epoch.
func NewFixedClock(at time.Time) *FixedClock {
	if at.IsZero() {
		at = Epoch
	}
	return &FixedClock{now: at}
}

// Now returns the current reading. It never moves on its own.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to at.
func (c *FixedClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
