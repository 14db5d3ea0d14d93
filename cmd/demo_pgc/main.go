// Command demo_pgc exercises the page cache end to end: it creates a
// cache, drives a handful of metrics through HOT -> DIRTY -> CLEAN,
// forces an eviction pass, and prints the resulting statistics.
package main

import (
	"fmt"
	"time"

	"github.com/nyxtsdb/pgc"
	"github.com/nyxtsdb/pgc/examples/pgd"
	"github.com/nyxtsdb/pgc/logger"
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/pageindex"
)

const (
	demoSection  = uint64(1)
	demoMetrics  = 8
	pointsPerPage = 60
)

func main() {
	if err := logger.Init(logger.Config{LogLevel: "info"}); err != nil {
		panic(err)
	}

	cache := pgc.Create(pgc.Config{
		Name:           "demo",
		CleanSizeBytes: 4 * 1024 * 1024,
		FreeCleanPage: func(_ *pgc.Cache, entry pgc.PageDescriptor) {
			logger.Debugf("demo: freed page metric=%d start=%d", entry.ID.MetricID, entry.ID.StartTime)
		},
		SaveDirty: func(_ *pgc.Cache, entries []pgc.PageDescriptor, _ []*page.Page) error {
			logger.Infof("demo: saving %d dirty pages", len(entries))
			return nil
		},
	})
	defer func() {
		if err := cache.Destroy(true); err != nil {
			logger.Errorf("demo: destroy: %v", err)
		}
	}()

	start := time.Now().Unix()

	for m := uint64(0); m < demoMetrics; m++ {
		raw := &pgd.RawPage{}
		for i := 0; i < pointsPerPage; i++ {
			raw.Append(float64(i))
		}

		p, added, err := cache.AddAndAcquire(pgc.Entry{
			Section:            demoSection,
			MetricID:            m,
			StartTime:           start,
			EndTime:             start + pointsPerPage,
			UpdateEverySeconds:  1,
			Size:                int64(raw.NominalSize()),
			Hot:                 true,
			Data:                raw,
		})
		if err != nil {
			logger.Errorf("demo: add_and_acquire failed: %v", err)
			continue
		}
		fmt.Printf("metric %d: added=%v state=%x\n", m, added, p.State())

		cache.HotToDirtyAndRelease(p, false)
	}

	if _, err := cache.FlushDirty(pgc.SectionAll); err != nil {
		logger.Errorf("demo: flush failed: %v", err)
	}

	found := cache.GetAndAcquire(demoSection, 0, start, pageindex.Exact)
	if found != nil {
		fmt.Printf("metric 0 found in state=%x\n", found.State())
		cache.Release(found)
	}

	evicted, skipped := cache.EvictPages(64, 4)
	fmt.Printf("evicted=%d skipped=%d\n", evicted, skipped)

	stats := cache.Statistics()
	fmt.Printf("hot=%d dirty=%d clean=%d current_size=%d\n",
		stats.Hot.Entries, stats.Dirty.Entries, stats.Clean.Entries, stats.CurrentSize)
}
