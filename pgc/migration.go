package pgc

import (
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// BeginMigrateToClean tags a HOT page as BEING_MIGRATED so no other
// caller may transition it while the migration callback runs, and
// returns the page's current descriptor for the callback to persist
// elsewhere. Callers must follow
// up with either FinishMigrateToClean or AbortMigrate.
func (c *Cache) BeginMigrateToClean(p *page.Page) (PageDescriptor, bool) {
	p.TransitionLock.Lock()
	defer p.TransitionLock.Unlock()

	if p.State() != page.FlagHot || p.HasFlag(page.FlagBeingMigrated) || p.HasFlag(page.FlagBeingDeleted) {
		return PageDescriptor{}, false
	}
	p.SetFlag(page.FlagBeingMigrated)
	return describe(p), true
}

// FinishMigrateToClean completes a migration started with
// BeginMigrateToClean: the page moves straight from HOT to CLEAN,
// bypassing DIRTY entirely, since the migration callback is the
// durability step that would otherwise have been the flush.
func (c *Cache) FinishMigrateToClean(p *page.Page) {
	c.hotOrDirtyToClean(p, waitlock.LowPriority)
	p.ClearFlag(page.FlagBeingMigrated)
}

// AbortMigrate clears BEING_MIGRATED without transitioning the page,
// leaving it HOT, for callers that fail partway through their own
// migration step.
func (c *Cache) AbortMigrate(p *page.Page) {
	p.ClearFlag(page.FlagBeingMigrated)
}
