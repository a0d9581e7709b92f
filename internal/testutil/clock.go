package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a SteppingClock reports.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a deterministic time source for tests.
//
// Every call to Now advances the clock by a fixed step, so measuring
// a span as two consecutive Now calls always yields exactly one step.
// Use it wherever production code takes a func() time.Time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	step  time.Duration
	ticks int64
}

// NewSteppingClock creates a clock that advances by step per Now call.
// A non-positive step yields a frozen clock.
func NewSteppingClock(step time.Duration) *SteppingClock {
	if step < 0 {
		step = 0
	}
	return &SteppingClock{step: step}
}

// Now returns Epoch plus one step per earlier call.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *SteppingClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock so the next Now returns Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
