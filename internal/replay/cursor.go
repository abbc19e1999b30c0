package replay

import (
	"sync/atomic"
)

// Cursor is the index of the next track line to process. It is written by the
// replay goroutine and may be read from any goroutine.
type Cursor struct {
	index atomic.Int64
}

// NewCursor creates a cursor positioned at index
func NewCursor(index int) *Cursor {
	c := &Cursor{}
	c.index.Store(int64(index))
	return c
}

// Index returns the current position
func (c *Cursor) Index() int {
	return int(c.index.Load())
}

// Advance moves the cursor to index if that is further along. It reports
// whether the cursor moved; a cursor never moves backwards through Advance.
func (c *Cursor) Advance(index int) bool {
	next := int64(index)
	for {
		cur := c.index.Load()
		if next <= cur {
			return false
		}
		if c.index.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Reset repositions the cursor unconditionally, e.g. for a new session
func (c *Cursor) Reset(index int) {
	c.index.Store(int64(index))
}
