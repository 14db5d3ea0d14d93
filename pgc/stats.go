package pgc

import "github.com/nyxtsdb/pgc/pqueue"

// Statistics is the public, read-only snapshot of a cache's state. It
// is assembled fresh on every call; callers that poll frequently
// should do so off a timer rather than a hot path.
type Statistics struct {
	Hot   pqueue.Snapshot
	Dirty pqueue.Snapshot
	Clean pqueue.Snapshot

	CurrentSize    int64
	ReferencedSize int64
	EvictingSize   int64
	FlushingSize   int64

	Acquires, Releases, AcquiresForDeletion int64
	HotToDirtyEntries, HotToDirtySize       int64
	SearchesExact, SearchesClosest, SearchesOther int64

	EventsSeverePressure         int64
	EventsNeedsSpaceAggressively int64
	EventsFlushCritical          int64
	EventsEvictWastedSpins       int64
	EventsFlushShortCircuited    int64
}

// Statistics assembles the current Statistics snapshot.
func (c *Cache) Statistics() Statistics {
	return Statistics{
		Hot:   c.hot.Stats.Snapshot(),
		Dirty: c.dirty.Stats.Snapshot(),
		Clean: c.clean.Stats.Snapshot(),

		CurrentSize:    c.counters.currentSize.Load(),
		ReferencedSize: c.counters.referencedSize.Load(),
		EvictingSize:   c.counters.evictingSize.Load(),
		FlushingSize:   c.counters.flushingSize.Load(),

		Acquires:            c.counters.acquires.Load(),
		Releases:            c.counters.releases.Load(),
		AcquiresForDeletion:  c.counters.acquiresForDeletion.Load(),
		HotToDirtyEntries:    c.counters.hot2dirtyEntries.Load(),
		HotToDirtySize:       c.counters.hot2dirtySize.Load(),
		SearchesExact:        c.counters.searchesExact.Load(),
		SearchesClosest:      c.counters.searchesClosest.Load(),
		SearchesOther:        c.counters.searchesOther.Load(),

		EventsSeverePressure:         c.counters.eventsSeverePressure.Load(),
		EventsNeedsSpaceAggressively: c.counters.eventsNeedsSpaceAggressively.Load(),
		EventsFlushCritical:          c.counters.eventsFlushCritical.Load(),
		EventsEvictWastedSpins:       c.counters.eventsEvictWastedSpins.Load(),
		EventsFlushShortCircuited:    c.counters.eventsFlushShortCircuited.Load(),
	}
}
