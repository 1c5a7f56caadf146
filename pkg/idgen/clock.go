// Package idgen allocates integer identifiers for drafts, live flows and versions.
package idgen

import (
	"sync"
	"time"
)

// Clock hands out millisecond timestamps, bumped past the previous value whenever the wall
// clock has not advanced. Drafts, live flows and versions share one Clock so their ids
// never collide.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock creates a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockFrom creates a clock reading time from now. Used by tests.
func NewClockFrom(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns an id strictly greater than every id returned before.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}

	c.last = id

	return id
}

// Observe moves the clock past id, so ids loaded from storage are never handed out again.
func (c *Clock) Observe(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id > c.last {
		c.last = id
	}
}
