package sizing

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sync/singleflight"
)

// Guard memoizes the most recent Usage and ensures only one caller at
// a time actually runs the (possibly probe-backed) computation;
// concurrent callers share the in-flight result instead of recomputing.
type Guard struct {
	group singleflight.Group
	last  unsafe.Pointer // *Usage
}

// Compute waits for and returns the result of the computation another
// goroutine is already running, if any; otherwise it runs fn. Either
// way the result is stored for Last.
func (g *Guard) Compute(fn func() Usage) Usage {
	v, _, _ := g.group.Do("usage", func() (interface{}, error) {
		u := fn()
		atomic.StorePointer(&g.last, unsafe.Pointer(&u))
		return u, nil
	})
	return v.(Usage)
}

// Last returns the most recently computed Usage without triggering a
// new computation. The zero value is returned if none has run yet.
func (g *Guard) Last() Usage {
	p := (*Usage)(atomic.LoadPointer(&g.last))
	if p == nil {
		return Usage{}
	}
	return *p
}
