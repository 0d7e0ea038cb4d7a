package engine

import "sync/atomic"

// Clock is the monotonic tick counter of one run.
//
// Ticks are logical time. Wall time is never used for ordering; it only feeds
// the elapsed_ms statistic.
//
// Thread-safety: Clock is safe for concurrent use, so a stream handler may
// read Current while the run advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. The next tick is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the last tick returned by Next.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
