package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant a DeterministicClock hands out
// unless told otherwise.
var DefaultEpoch = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// DeterministicClock hands out evenly spaced UTC instants for stamping
// fixtures. Two clocks built with the same epoch and step produce the
// same sequence, so seeded timestamps are stable across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at epoch that advances
// by step on every Next. A non-positive step defaults to one minute.
//
// The first call to Next() returns epoch.
func NewDeterministicClock(epoch time.Time, step time.Duration) *DeterministicClock {
	if step <= 0 {
		step = time.Minute
	}
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Next returns the current instant and advances the clock one step.
func (c *DeterministicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.at(c.ticks)
	c.ticks++
	return t
}

// Current returns the instant the next call to Next will return.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at(c.ticks)
}

// Reset rewinds the clock to its epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

func (c *DeterministicClock) at(ticks int64) time.Time {
	return c.epoch.Add(time.Duration(ticks) * c.step)
}
