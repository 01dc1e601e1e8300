package testutil

import "sync"

// TraceClock hands out the monotonically increasing seq numbers stamped on
// scenario trace events.
//
// NEVER use wall-clock timestamps for trace ordering: two runs of the same
// scenario must produce byte-identical traces.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TraceClock struct {
	mu  sync.Mutex
	seq int64
}

// NewTraceClock creates a clock whose first Tick returns 1.
func NewTraceClock() *TraceClock {
	return &TraceClock{}
}

// Tick advances the clock and returns the new seq.
func (c *TraceClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Now returns the last seq handed out, or 0 before the first Tick.
func (c *TraceClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Rewind sets the clock back to 0 so a scenario can be re-run.
func (c *TraceClock) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
