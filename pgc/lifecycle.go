package pgc

import (
	"runtime"
	"time"

	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/pageindex"
	"github.com/nyxtsdb/pgc/waitlock"
)

// Entry describes a page to be inserted.
type Entry struct {
	Section            uint64
	MetricID            uint64
	StartTime           int64
	EndTime             int64
	UpdateEverySeconds  uint32
	Size                int64 // payload size, excluding overhead
	Hot                 bool
	CustomData          []byte
	Data                page.Data
}

// AddAndAcquire inserts entry, or finds and acquires the page already
// occupying that identity. The returned bool reports whether
// this call created the page (true) or found an existing one (false).
func (c *Cache) AddAndAcquire(entry Entry) (*page.Page, bool, error) {
	if entry.Size < 0 || entry.EndTime < entry.StartTime {
		return nil, false, newError("add_and_acquire", ErrInvalidEntry)
	}
	if entry.Size == 0 && entry.Data != nil && c.cfg.NominalPageSize != nil {
		entry.Size = int64(c.cfg.NominalPageSize(entry.Data))
	}

	assumedSize := entry.Size + c.cfg.AdditionalBytesPerPage
	initial := page.FlagClean
	if entry.Hot {
		initial = page.FlagHot
	}

	for {
		candidate := page.New(
			page.ID{Section: entry.Section, MetricID: entry.MetricID, StartTime: entry.StartTime},
			initial, entry.EndTime, entry.UpdateEverySeconds, assumedSize, c.cfg.CustomDataLen, entry.Data,
		)
		if len(entry.CustomData) > 0 {
			copy(candidate.CustomData, entry.CustomData)
		}

		found, existed := c.index.InsertOrGet(candidate)
		if !existed {
			c.linkNewPage(found)
			c.accountCurrentSize(found.AssumedSize())
			c.counters.acquires.Add(1)
			c.counters.referencedSize.Add(found.AssumedSize())
			c.afterInsertInline(found.State())
			return found, true, nil
		}

		ok, becameReferenced := found.Refcount.AcquireEdge()
		if ok {
			if becameReferenced {
				c.counters.referencedSize.Add(found.AssumedSize())
			}
			c.counters.acquires.Add(1)
			return found, false, nil
		}

		// found is mid-deletion: spin until the evictor finishes
		// unlinking it from the index, then retry our insert.
		runtime.Gosched()
		time.Sleep(time.Microsecond)
	}
}

// linkNewPage places a freshly inserted page into its initial queue
// (HOT or CLEAN) under the appropriate wait-priority lock.
func (c *Cache) linkNewPage(p *page.Page) {
	switch p.State() {
	case page.FlagHot:
		c.hot.Lock.Acquire(waitlock.Collectors)
		c.hot.Add(p)
		c.hot.Lock.Release()
	case page.FlagClean:
		c.clean.Lock.Acquire(waitlock.LowPriority)
		c.clean.Add(p)
		c.clean.Lock.Release()
	}
}

// afterInsertInline runs the inline-eviction hook on the add path
// when a freshly linked CLEAN page pushes the cache into AGGRESSIVE
// territory.
func (c *Cache) afterInsertInline(state page.Flag) {
	if state != page.FlagClean || c.cfg.Options&OptEvictNoInline != 0 {
		return
	}
	u := c.ComputeUsage()
	if u.Per1000 >= c.cfg.Thresholds.Aggressive {
		c.evictPages(c.cfg.MaxSkipPagesPerInlineEviction, c.cfg.MaxPagesPerInlineEviction)
	}
}

// Dup acquires an additional reference on an already-held page. It is
// fatal to dup a page that has already been tagged for deletion: the caller is assumed to already hold a live reference, so
// AcquireEdge failing means an invariant was broken elsewhere.
func (c *Cache) Dup(p *page.Page) *page.Page {
	ok, becameReferenced := p.Refcount.AcquireEdge()
	if !ok {
		fatalInvariant("dup", p, "page is already deleted")
		return p
	}
	if becameReferenced {
		c.counters.referencedSize.Add(p.AssumedSize())
	}
	c.counters.acquires.Add(1)
	return p
}

// Release drops a reference acquired via AddAndAcquire, Dup or
// GetAndAcquire, then runs whatever inline hook applies for a release
// on this page's current state.
func (c *Cache) Release(p *page.Page) {
	n := p.Refcount.Release()
	c.counters.releases.Add(1)
	if n == 0 {
		c.counters.referencedSize.Sub(p.AssumedSize())
	}

	switch p.State() {
	case page.FlagClean:
		if c.cfg.Options&OptEvictNoInline == 0 {
			u := c.ComputeUsage()
			if u.Per1000 >= c.cfg.Thresholds.Severe {
				c.evictPages(c.cfg.MaxSkipPagesPerInlineEviction, c.cfg.MaxPagesPerInlineEviction)
			}
		}
	case page.FlagDirty:
		if c.cfg.Options&OptFlushNoInline == 0 {
			hotMax := c.hot.Stats.Snapshot().MaxSize
			if hotMax > 0 && c.dirty.Stats.Snapshot().Size > hotMax {
				c.flushInline(c.cfg.MaxFlushesInline)
			}
		}
	}
}

// HotToDirtyAndRelease transitions a HOT page to DIRTY and releases
// the caller's reference in one call. neverFlush suppresses
// the inline flush hook, e.g. when the caller knows more writes are
// imminent.
func (c *Cache) HotToDirtyAndRelease(p *page.Page, neverFlush bool) {
	c.hotToDirty(p)
	n := p.Refcount.Release()
	c.counters.releases.Add(1)
	if n == 0 {
		c.counters.referencedSize.Sub(p.AssumedSize())
	}
	if !neverFlush && c.cfg.Options&OptFlushNoInline == 0 {
		hotMax := c.hot.Stats.Snapshot().MaxSize
		if hotMax > 0 && c.dirty.Stats.Snapshot().Size > hotMax {
			c.flushInline(c.cfg.MaxFlushesInline)
		}
	}
}

// ToCleanEvictOrRelease transitions a HOT or DIRTY page the caller
// holds straight to CLEAN (bypassing the other of the two) and releases
// the caller's reference; if no other reference exists, it evicts the
// page immediately instead of letting it sit in the CLEAN queue. It
// returns true if the page was evicted inline.
func (c *Cache) ToCleanEvictOrRelease(p *page.Page) bool {
	p.SetFlag(page.FlagIgnoreAccesses)
	p.ResetAccesses()

	c.hotOrDirtyToClean(p, waitlock.LowPriority)

	if p.Refcount.ReleaseAndAcquireForDeletion() {
		c.counters.releases.Add(1)
		c.counters.referencedSize.Sub(p.AssumedSize())
		c.counters.acquiresForDeletion.Add(1)

		c.clean.Lock.Acquire(waitlock.LowPriority)
		c.deleteCleanPage(p)
		c.clean.Lock.Release()
		return true
	}
	c.counters.releases.Add(1)
	return false
}

// GetAndAcquire looks up a page by identity and time-relative method
// and, if found, acquires a reference on it.
// It returns nil if nothing matches or the match is mid-deletion.
func (c *Cache) GetAndAcquire(section, metricID uint64, startTime int64, method pageindex.Method) *page.Page {
	switch method {
	case pageindex.Exact:
		c.counters.searchesExact.Add(1)
	case pageindex.Closest:
		c.counters.searchesClosest.Add(1)
	default:
		c.counters.searchesOther.Add(1)
	}

	p := c.index.Find(section, metricID, startTime, method)
	if p == nil {
		return nil
	}
	ok, becameReferenced := p.Refcount.AcquireEdge()
	if !ok {
		return nil
	}
	if becameReferenced {
		c.counters.referencedSize.Add(p.AssumedSize())
	}
	c.counters.acquires.Add(1)
	return p
}

// HotSetEndTime extends a HOT page's covered range and accounts for
// any growth in its assumed size.
func (c *Cache) HotSetEndTime(p *page.Page, endTime int64, extraBytes int64) {
	if endTime < p.EndTime() {
		fatalInvariant("hot_set_end_time", p, "end time must not move backwards")
		return
	}
	p.SetEndTime(endTime)
	if extraBytes != 0 {
		p.AddAssumedSize(extraBytes)
		c.hot.Resize(p, extraBytes)
		c.accountCurrentSize(extraBytes)
		if p.Refcount.Load() > 0 {
			c.counters.referencedSize.Add(extraBytes)
		}
	}
}

// FixEndTime overrides a page's end time unconditionally, for loaders
// reconstructing state from disk where the usual monotonic guarantee
// doesn't apply yet.
func (c *Cache) FixEndTime(p *page.Page, endTime int64) {
	p.SetEndTime(endTime)
}

// FixUpdateEvery sets a page's update-every interval only if it is
// still unset (zero); it never clobbers an interval already in effect.
func (c *Cache) FixUpdateEvery(p *page.Page, updateEvery uint32) {
	if p.UpdateEverySeconds() == 0 {
		p.SetUpdateEverySeconds(updateEvery)
	}
}
