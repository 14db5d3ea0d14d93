// Package refcount implements the lock-free reference counter every
// cached page carries. It is deliberately the smallest
// possible primitive: a 32-bit atomic counter plus one terminal
// "deleted" sentinel value that future acquires must never cross back
// out of.
package refcount

import "go.uber.org/atomic"

// Deleted is the sentinel value a counter is set to once a page has
// been accepted for deletion. No further acquire can succeed once the
// counter reads Deleted.
const Deleted int32 = -1 << 30

// Count is a lock-free, acquire/release-ordered reference counter.
type Count struct {
	n atomic.Int32
}

// New returns a counter with the given initial value (callers create
// a page with refcount 1: the reference returned to them).
func New(initial int32) *Count {
	c := &Count{}
	c.n.Store(initial)
	return c
}

// Load reads the current value without synchronizing with other
// operations beyond what the atomic load itself guarantees.
func (c *Count) Load() int32 {
	return c.n.Load()
}

// Acquire increments the counter if it is live (>= 0) and returns
// true. It returns false without incrementing if the page is already
// tagged Deleted.
func (c *Count) Acquire() bool {
	for {
		cur := c.n.Load()
		if cur < 0 {
			return false
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// AcquireEdge behaves like Acquire but additionally reports whether the
// counter was exactly zero beforehand — i.e. whether this acquire is
// the one that makes the page referenced again. Callers use this to
// maintain a running "referenced size" statistic without double
// counting concurrent acquires of an already-referenced page.
func (c *Count) AcquireEdge() (ok bool, becameReferenced bool) {
	for {
		cur := c.n.Load()
		if cur < 0 {
			return false, false
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			return true, cur == 0
		}
	}
}

// Release decrements the counter and returns the new value. Releasing
// a counter that is already Deleted is a caller bug.
func (c *Count) Release() int32 {
	return c.n.Dec()
}

// AcquireForDeletion transitions the counter to Deleted, but only if
// it currently reads exactly zero (no outstanding references). It
// returns false if the counter is non-zero or already Deleted.
func (c *Count) AcquireForDeletion() bool {
	return c.n.CompareAndSwap(0, Deleted)
}

// ReleaseAndAcquireForDeletion atomically decrements the counter and,
// if the result is zero, transitions it straight to Deleted in the
// same operation — so no concurrent Acquire can observe a zero window
// and race the deleter. It returns true if the Deleted transition
// happened.
func (c *Count) ReleaseAndAcquireForDeletion() bool {
	for {
		cur := c.n.Load()
		next := cur - 1
		if next == 0 {
			if c.n.CompareAndSwap(cur, Deleted) {
				return true
			}
			continue
		}
		if c.n.CompareAndSwap(cur, next) {
			return false
		}
	}
}

// IsDeleted reports whether the counter has reached the terminal
// Deleted state.
func (c *Count) IsDeleted() bool {
	return c.n.Load() < 0
}
