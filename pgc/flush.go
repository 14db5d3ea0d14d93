package pgc

import (
	"github.com/nyxtsdb/pgc/logger"
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// dirtyRemovedToClean finishes a DIRTY->CLEAN transition for a page
// the flush engine has already unlinked from the DIRTY queue under
// the DIRTY lock.
func (c *Cache) dirtyRemovedToClean(p *page.Page) {
	p.TransitionLock.Lock()
	p.SetState(page.FlagClean)
	p.TransitionLock.Unlock()

	c.clean.Lock.Acquire(waitlock.Flushers)
	c.clean.Add(p)
	c.clean.Lock.Release()
}

// flushSection drains up to maxPages DIRTY pages belonging to section
// through the user's save callback, returning how many were flushed.
// Pages the callback fails to save are relinked back onto DIRTY rather
// than transitioned.
func (c *Cache) flushSection(section uint64, maxPages int) (int, error) {
	c.dirty.Lock.Acquire(waitlock.Flushers)
	sp := c.dirty.Section(section)
	if sp.EntryCount() == 0 {
		c.dirty.Lock.Release()
		return 0, nil
	}

	var collected []*page.Page
	sp.Walk(func(p *page.Page) bool {
		collected = append(collected, p)
		return len(collected) < maxPages
	})
	for _, p := range collected {
		c.dirty.Remove(p)
	}
	c.dirty.Lock.Release()

	if len(collected) == 0 {
		return 0, nil
	}

	if c.cfg.SaveDirtyInit != nil {
		c.cfg.SaveDirtyInit(c, section)
	}

	entries := make([]PageDescriptor, len(collected))
	for i, p := range collected {
		entries[i] = describe(p)
	}

	c.counters.flushingEntries.Add(int64(len(collected)))
	var flushingSize int64
	for _, p := range collected {
		flushingSize += p.AssumedSize()
	}
	c.counters.flushingSize.Add(flushingSize)

	err := c.cfg.SaveDirty(c, entries, collected)

	c.counters.flushingEntries.Sub(int64(len(collected)))
	c.counters.flushingSize.Sub(flushingSize)

	if err != nil {
		logger.Errorf("pgc[%s]: save_dirty failed for section %d: %v", c.cfg.Name, section, err)
		c.dirty.Lock.Acquire(waitlock.Flushers)
		for _, p := range collected {
			c.dirty.Add(p)
		}
		c.dirty.Lock.Release()
		return 0, newError("flush", ErrSaveDirtyFailed)
	}

	for _, p := range collected {
		c.dirtyRemovedToClean(p)
	}
	c.flushVersion.Add(1)
	return len(collected), nil
}

// flushInline runs up to n flush batches as the inline hook for
// HotToDirtyAndRelease / Release. Each batch flushes whichever section
// dirty.Sections() lists first; it stops early when no section holds
// DIRTY pages or a batch flushes nothing or fails.
func (c *Cache) flushInline(n int) {
	c.counters.eventsFlushCritical.Add(1)
	for i := 0; i < n; i++ {
		sections := c.dirty.Sections()
		if len(sections) == 0 {
			return
		}
		flushed, err := c.flushSection(sections[0], c.cfg.MaxDirtyPagesPerFlush)
		if err != nil || flushed == 0 {
			return
		}
	}
}

// FlushDirty flushes up to MaxDirtyPagesPerFlush DIRTY pages of the
// given section, or up to that many from each section if section ==
// SectionAll. The flush version counts successful flush batches; a
// SectionAll call made when no flush has completed since the last
// SectionAll call finished and no section holds DIRTY pages
// short-circuits without touching any queue lock.
func (c *Cache) FlushDirty(section uint64) (int, error) {
	if section != SectionAll {
		return c.flushSection(section, c.cfg.MaxDirtyPagesPerFlush)
	}

	if v := c.flushVersion.Load(); v > 0 && v == c.lastFlushAllVersion.Load() && len(c.dirty.Sections()) == 0 {
		c.counters.eventsFlushShortCircuited.Add(1)
		return 0, nil
	}

	total := 0
	for _, s := range c.dirty.Sections() {
		n, err := c.flushSection(s, c.cfg.MaxDirtyPagesPerFlush)
		total += n
		if err != nil {
			return total, err
		}
	}
	c.lastFlushAllVersion.Store(c.flushVersion.Load())
	return total, nil
}

// FlushAllHotAndDirty converts every HOT page of a section (or every
// section) to DIRTY, then flushes every resulting DIRTY page to CLEAN.
// Used by Destroy and by administrative "quiesce a section" calls.
func (c *Cache) FlushAllHotAndDirty(section uint64) error {
	sections := []uint64{section}
	if section == SectionAll {
		c.hot.Lock.Acquire(waitlock.Collectors)
		sections = c.hot.Sections()
		c.hot.Lock.Release()
	}

	for _, s := range sections {
		c.hot.Lock.Acquire(waitlock.Collectors)
		sp := c.hot.Section(s)
		var hotPages []*page.Page
		sp.Walk(func(p *page.Page) bool {
			hotPages = append(hotPages, p)
			return true
		})
		c.hot.Lock.Release()

		for _, p := range hotPages {
			c.hotToDirty(p)
		}
	}

	for {
		n, err := c.FlushDirty(section)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
