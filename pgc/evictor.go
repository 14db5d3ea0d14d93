package pgc

import (
	"time"

	"github.com/nyxtsdb/pgc/logger"
)

const evictorTickInterval = time.Second

// evictorLoop is the background goroutine that waits for a wake
// signal or a one-second timeout, recomputes usage, evicts under
// pressure, and occasionally asks the host to trim its own allocator
// if things are still tight.
func (c *Cache) evictorLoop() {
	defer close(c.evictorDone)

	ticker := time.NewTicker(evictorTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.evictorStop:
			return
		case <-c.evictorWake:
		case <-ticker.C:
		}

		u := c.ComputeUsage()
		needsCleanup := u.Per1000 >= c.cfg.Thresholds.Aggressive

		batches := c.cfg.MaxInlineEvictors
		if batches < 1 {
			batches = 1
		}
		if u.Per1000 >= c.cfg.Thresholds.Healthy {
			c.evictPages(c.cfg.MaxSkipPagesPerInlineEviction*batches, c.cfg.MaxPagesPerInlineEviction*batches)
		}

		if needsCleanup {
			last := c.lastCleanupAt.Load()
			now := nowUnixNano()
			if now-last >= int64(time.Second) {
				c.lastCleanupAt.Store(now)
				if c.cfg.TrimMemory != nil {
					c.cfg.TrimMemory()
				}
			}
		}
	}
}

// Destroy stops the evictor thread and, if flush is true, persists
// every HOT and DIRTY page before reporting any pages still
// referenced by callers. It is safe to call
// Destroy exactly once; further calls are no-ops.
func (c *Cache) Destroy(flush bool) error {
	var err error
	c.destroyOnce.Do(func() {
		close(c.evictorStop)
		<-c.evictorDone

		if flush {
			err = c.FlushAllHotAndDirty(SectionAll)
		}

		c.FreeAllUnreferencedCleanPages()

		if c.counters.referencedSize.Load() > 0 {
			logger.Warnf("pgc[%s]: destroyed with %d bytes still referenced", c.cfg.Name, c.counters.referencedSize.Load())
			if err == nil {
				err = newError("destroy", ErrCacheHasReferencedPages)
			}
		}
	})
	return err
}
