// Package pgc is the page cache core: a concurrent,
// in-memory cache of fixed-identity pages that transit HOT -> DIRTY ->
// CLEAN -> evicted under strict ownership and locking rules.
package pgc

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/nyxtsdb/pgc/logger"
	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/pageindex"
	"github.com/nyxtsdb/pgc/pqueue"
	"github.com/nyxtsdb/pgc/sizing"
)

// Options is the construction-time bitmask.
type Options uint32

const (
	OptEvictNoInline Options = 1 << iota
	OptFlushNoInline
	OptAutoscale
)

// DefaultOptions is EVICT_NO_INLINE | AUTOSCALE: evictions happen off
// the inline path and the target size adapts to hot/dirty pressure.
const DefaultOptions = OptEvictNoInline | OptAutoscale

// SectionAll is the sentinel meaning "every section" for bulk flush
// operations.
const SectionAll uint64 = 0

// Config bundles everything create() takes.
type Config struct {
	Name string

	CleanSizeBytes int64

	FreeCleanPage FreeCleanPageFunc
	SaveDirtyInit SaveDirtyInitFunc // optional
	SaveDirty     SaveDirtyFunc

	MaxDirtyPagesPerFlush        int
	MaxPagesPerInlineEviction    int
	MaxInlineEvictors            int
	MaxSkipPagesPerInlineEviction int
	MaxFlushesInline              int

	Options    Options
	Partitions int

	AdditionalBytesPerPage int64
	CustomDataLen          int

	DynamicTargetCacheSize DynamicTargetCacheSizeFunc
	NominalPageSize        NominalPageSizeFunc

	OOMProtectBytes int64
	UseAllRAM       bool
	Thresholds      sizing.Thresholds

	// AvailableMemory overrides the default gopsutil-backed probe; set
	// in tests to avoid depending on the host's real memory state.
	AvailableMemory func() (available int64, ok bool)

	// TrimMemory, if set, is invoked by the evictor thread at most once
	// a second while the cache is under AGGRESSIVE pressure, to let the
	// host return freed pages to the OS.
	TrimMemory func()
}

// globalCounters are the process-wide statistics Statistics exposes
// outside the per-queue Stats.
type globalCounters struct {
	evictingEntries, evictingSize atomic.Int64
	flushingEntries, flushingSize atomic.Int64
	referencedSize                atomic.Int64
	currentSize                   atomic.Int64

	acquires, releases, acquiresForDeletion atomic.Int64
	hot2dirtyEntries, hot2dirtySize         atomic.Int64
	searchesExact, searchesClosest, searchesOther atomic.Int64

	eventsSeverePressure     atomic.Int64
	eventsNeedsSpaceAggressively atomic.Int64
	eventsFlushCritical      atomic.Int64
	eventsEvictWastedSpins   atomic.Int64
	eventsFlushShortCircuited atomic.Int64
}

// Cache is the page cache core.
type Cache struct {
	cfg Config

	index *pageindex.Index
	hot   *pqueue.SectionQueue
	dirty *pqueue.SectionQueue
	clean *pqueue.CleanQueue

	sizingCfg  sizing.Config
	usageGuard sizing.Guard

	counters globalCounters

	flushVersion        atomic.Int64
	lastFlushAllVersion atomic.Int64

	evictorStop   chan struct{}
	evictorDone   chan struct{}
	evictorWake   chan struct{}
	lastCleanupAt atomic.Int64 // unix nanos

	destroyOnce sync.Once
}

// Create constructs a running Cache with defaults filled in and its
// evictor goroutine started immediately.
func Create(cfg Config) *Cache {
	if cfg.Options == 0 {
		cfg.Options = DefaultOptions
	}
	if cfg.Partitions == 0 {
		cfg.Partitions = pageindex.ClampPartitions(2 * runtime.NumCPU())
	} else {
		cfg.Partitions = pageindex.ClampPartitions(cfg.Partitions)
	}
	if cfg.MaxDirtyPagesPerFlush <= 0 {
		cfg.MaxDirtyPagesPerFlush = 256
	}
	if cfg.MaxPagesPerInlineEviction <= 0 {
		cfg.MaxPagesPerInlineEviction = 16
	}
	if cfg.MaxSkipPagesPerInlineEviction <= 0 {
		cfg.MaxSkipPagesPerInlineEviction = 64
	}
	if cfg.MaxFlushesInline <= 0 {
		cfg.MaxFlushesInline = 1
	}
	if cfg.Thresholds == (sizing.Thresholds{}) {
		cfg.Thresholds = sizing.DefaultThresholds()
	}

	c := &Cache{
		cfg:         cfg,
		index:       pageindex.New(cfg.Partitions),
		hot:         pqueue.NewSectionQueue(),
		dirty:       pqueue.NewSectionQueue(),
		clean:       pqueue.NewCleanQueue(),
		evictorStop: make(chan struct{}),
		evictorDone: make(chan struct{}),
		evictorWake: make(chan struct{}, 1),
	}

	c.sizingCfg = sizing.Config{
		TargetCleanBytes: cfg.CleanSizeBytes,
		Autoscale:        cfg.Options&OptAutoscale != 0,
		OOMProtectBytes:  cfg.OOMProtectBytes,
		UseAllRAM:        cfg.UseAllRAM,
		Thresholds:       cfg.Thresholds,
	}
	if cfg.DynamicTargetCacheSize != nil {
		c.sizingCfg.DynamicTarget = func(hot, dirty int64) int64 {
			return cfg.DynamicTargetCacheSize()
		}
	}
	c.sizingCfg.AvailableMemory = cfg.AvailableMemory
	if c.sizingCfg.AvailableMemory == nil && cfg.OOMProtectBytes > 0 {
		c.sizingCfg.AvailableMemory = defaultAvailableMemory
	}

	go c.evictorLoop()

	logger.Debugf("pgc[%s]: cache created, partitions=%d options=%s", cfg.Name, cfg.Partitions, c.OptionsString())

	return c
}

// OptionsString renders the effective option bitmask by name, for
// startup diagnostics.
func (c *Cache) OptionsString() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if c.cfg.Options&OptEvictNoInline != 0 {
		add("EVICT_NO_INLINE")
	}
	if c.cfg.Options&OptFlushNoInline != 0 {
		add("FLUSH_NO_INLINE")
	}
	if c.cfg.Options&OptAutoscale != 0 {
		add("AUTOSCALE")
	}
	if s == "" {
		return "NONE"
	}
	return s
}

func (c *Cache) snapshot() sizing.Snapshot {
	hotStats := c.hot.Stats.Snapshot()
	dirtyStats := c.dirty.Stats.Snapshot()
	cleanStats := c.clean.Stats.Snapshot()

	return sizing.Snapshot{
		Hot:            hotStats.Size,
		HotMax:         hotStats.MaxSize,
		Dirty:          dirtyStats.Size,
		DirtyMax:       dirtyStats.MaxSize,
		Clean:          cleanStats.Size,
		Evicting:       c.counters.evictingSize.Load(),
		Flushing:       c.counters.flushingSize.Load(),
		CurrentSize:    c.counters.currentSize.Load(),
		ReferencedSize: c.counters.referencedSize.Load(),
	}
}

// ComputeUsage computes the cache's current target size and pressure
// level. The computation is single-flighted, so concurrent callers
// never race the (possibly probe-backed) underlying work.
func (c *Cache) ComputeUsage() sizing.Usage {
	u := c.usageGuard.Compute(func() sizing.Usage {
		return sizing.Compute(c.sizingCfg, c.snapshot())
	})
	if u.NeedsEvictorThread {
		c.counters.eventsNeedsSpaceAggressively.Add(1)
		c.wakeEvictor()
	}
	if u.Per1000 >= c.cfg.Thresholds.Severe {
		c.counters.eventsSeverePressure.Add(1)
	}
	return u
}

func (c *Cache) wakeEvictor() {
	select {
	case c.evictorWake <- struct{}{}:
	default:
	}
}

func (c *Cache) accountCurrentSize(delta int64) {
	c.counters.currentSize.Add(delta)
}

func nowUnixNano() int64 { return time.Now().UnixNano() }
