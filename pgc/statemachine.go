package pgc

import (
	"github.com/nyxtsdb/pgc/logger"
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// fatalInvariant aborts the process with a descriptive message:
// failures that are not recoverable by the cache surface as process
// aborts identifying the page identity and the violated invariant.
func fatalInvariant(op string, p *page.Page, msg string) {
	logger.Fatalf("pgc invariant violation in %s: page{section=%d metric=%d start=%d} flags=%x: %s",
		op, p.ID.Section, p.ID.MetricID, p.ID.StartTime, p.Flags(), msg)
}

// hotToDirty moves p from HOT to DIRTY. Lock order: HOT queue lock,
// then the page transition lock, then the DIRTY queue lock. The HOT lock is held for the
// whole transition, not just the removal, because bulk HOT->DIRTY
// conversions walk a section under the HOT lock and would deadlock
// against a transition that took the transition lock first.
func (c *Cache) hotToDirty(p *page.Page) {
	c.hot.Lock.Acquire(waitlock.Collectors)
	p.TransitionLock.Lock()

	if p.State() != page.FlagHot || p.HasFlag(page.FlagBeingDeleted) || p.HasFlag(page.FlagBeingMigrated) {
		p.TransitionLock.Unlock()
		c.hot.Lock.Release()
		fatalInvariant("hot_to_dirty", p, "page is not HOT, is being deleted, or is being migrated")
		return
	}

	c.hot.Remove(p)
	p.SetState(page.FlagDirty)

	c.dirty.Lock.Acquire(waitlock.Collectors)
	c.dirty.Add(p)
	c.dirty.Lock.Release()

	p.TransitionLock.Unlock()
	c.hot.Lock.Release()

	c.counters.hot2dirtyEntries.Add(1)
	c.counters.hot2dirtySize.Add(p.AssumedSize())
}

// hotOrDirtyToClean moves p (currently HOT or DIRTY) to CLEAN. Lock
// order: page transition lock first, then the origin queue lock
// (briefly, just to unlink), then the CLEAN queue lock.
func (c *Cache) hotOrDirtyToClean(p *page.Page, prio waitlock.Priority) {
	p.TransitionLock.Lock()
	defer p.TransitionLock.Unlock()

	switch p.State() {
	case page.FlagHot:
		c.hot.Lock.Acquire(prio)
		c.hot.Remove(p)
		c.hot.Lock.Release()
	case page.FlagDirty:
		c.dirty.Lock.Acquire(prio)
		c.dirty.Remove(p)
		c.dirty.Lock.Release()
	default:
		fatalInvariant("to_clean", p, "page is neither HOT nor DIRTY")
		return
	}

	p.SetState(page.FlagClean)
	c.clean.Lock.Acquire(prio)
	c.clean.Add(p)
	c.clean.Lock.Release()
}

// deleteCleanPage removes an unreferenced CLEAN page from the CLEAN
// queue, the index, and invokes the free callback. Caller must already hold the CLEAN queue
// lock and must have successfully called p.Refcount.AcquireForDeletion().
func (c *Cache) deleteCleanPage(p *page.Page) {
	c.clean.Remove(p)
	p.SetFlag(page.FlagBeingDeleted)
	c.index.Remove(p)

	size := p.AssumedSize()
	if c.cfg.FreeCleanPage != nil {
		c.cfg.FreeCleanPage(c, describe(p))
	}
	c.accountCurrentSize(-size)
}
