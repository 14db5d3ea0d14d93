package pgc

import (
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// evictPages walks the CLEAN queue from its LRU end, evicting
// unreferenced pages until maxEvict have been freed or maxSkip
// still-referenced pages in total have had to be passed over,
// whichever comes first. A page
// that has been accessed since it was last visited gets one more lap
// (moved to the MRU end, HAS_BEEN_ACCESSED cleared) instead of
// counting as a skip against a referenced page. A page that is still
// referenced when AcquireForDeletion is attempted is likewise
// relocated to the MRU end rather than left in place, so repeated
// passes make progress instead of spinning on the same pages. The walk
// visits at most as many pages as the queue held when it began, so it
// never goes round the queue more than once. A whole pass that skips at least one page without evicting any counts
// as one wasted spin.
func (c *Cache) evictPages(maxSkip, maxEvict int) (evicted, skipped int) {
	c.clean.Lock.Acquire(waitlock.Evictors)
	defer c.clean.Lock.Release()

	start := c.clean.Front()
	if start == nil {
		return 0, 0
	}

	seenFirstAgain := false
	p := start
	visited := 0
	total := c.clean.Len()

	for p != nil && evicted < maxEvict && skipped < maxSkip {
		next := c.clean.Next(p)

		if p.HasFlag(page.FlagHasBeenAccessed) && !p.HasFlag(page.FlagIgnoreAccesses) {
			p.ClearFlag(page.FlagHasBeenAccessed)
			c.clean.MoveToTail(p)
			p = next
			visited++
			if visited >= total {
				break
			}
			continue
		}

		if !p.Refcount.AcquireForDeletion() {
			skipped++
			c.clean.MoveToTail(p)
			p = next
			visited++
			if visited >= total {
				break
			}
			continue
		}

		c.counters.acquiresForDeletion.Add(1)
		c.deleteCleanPage(p)
		evicted++

		p = next
		visited++
		if p == start {
			seenFirstAgain = true
		}
		if seenFirstAgain || visited >= total {
			break
		}
	}

	if evicted == 0 && skipped > 0 {
		c.counters.eventsEvictWastedSpins.Add(1)
	}

	return evicted, skipped
}

// EvictPages runs the eviction engine out-of-band, e.g. from the
// evictor thread or an administrative command.
func (c *Cache) EvictPages(maxSkip, maxEvict int) (evicted, skipped int) {
	return c.evictPages(maxSkip, maxEvict)
}

// FreeAllUnreferencedCleanPages repeatedly runs the eviction engine
// until a pass makes no progress, used by Destroy to drop every page
// it safely can before reporting leftover references.
func (c *Cache) FreeAllUnreferencedCleanPages() {
	for {
		evicted, _ := c.evictPages(c.clean.Len()+1, c.clean.Len()+1)
		if evicted == 0 {
			return
		}
	}
}

// CountCleanPagesHavingDataPtr reports how many CLEAN pages in section
// currently carry data as their Data payload — e.g. to tell a caller
// unmapping a datafile's buffer how many pages still reference it.
func (c *Cache) CountCleanPagesHavingDataPtr(section uint64, data page.Data) int {
	count := 0
	c.clean.Lock.Acquire(waitlock.LowPriority)
	defer c.clean.Lock.Release()

	p := c.clean.Front()
	for p != nil {
		if p.ID.Section == section && p.Data == data {
			count++
		}
		p = c.clean.Next(p)
	}
	return count
}

// CountHotPagesHavingDataPtr is the HOT-queue analogue of
// CountCleanPagesHavingDataPtr, walking only section.
func (c *Cache) CountHotPagesHavingDataPtr(section uint64, data page.Data) int {
	count := 0
	c.hot.Lock.Acquire(waitlock.LowPriority)
	defer c.hot.Lock.Release()

	c.hot.Section(section).Walk(func(p *page.Page) bool {
		if p.Data == data {
			count++
		}
		return true
	})
	return count
}
