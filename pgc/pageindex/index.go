// Package pageindex is the sharded ordered index: a partitioned map of
// section -> metric_id -> start_time -> Page, each partition under its
// own reader/writer lock.
package pageindex

import (
	"sort"
	"sync"

	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/util"
)

// Method selects which page a Find call should return relative to a
// requested time.
type Method int

const (
	Exact Method = iota
	Closest
	First
	Next
	Last
	Prev
)

const (
	minPartitions = 4
	maxPartitions = 256
)

// ClampPartitions enforces the [4, 256] partition-count range.
func ClampPartitions(n int) int {
	if n < minPartitions {
		return minPartitions
	}
	if n > maxPartitions {
		return maxPartitions
	}
	return n
}

// timeline is a start_time-ordered run of pages for one metric. A
// plain sorted slice is enough: per-metric page counts are small
// (bounded by retention), and it keeps Find's CLOSEST/NEXT/PREV logic
// a simple binary search instead of a hand-rolled tree.
type timeline []*page.Page

func (t timeline) search(start int64) int {
	return sort.Search(len(t), func(i int) bool { return t[i].ID.StartTime >= start })
}

func (t timeline) find(start int64) *page.Page {
	i := t.search(start)
	if i < len(t) && t[i].ID.StartTime == start {
		return t[i]
	}
	return nil
}

type partition struct {
	mu   sync.RWMutex
	data map[uint64]map[uint64]timeline // section -> metric_id -> timeline
}

// Index is the sharded page index. Zero value is not usable; call New.
type Index struct {
	partitions []*partition
}

// New creates an index with n partitions (clamped to [4, 256]).
func New(n int) *Index {
	n = ClampPartitions(n)
	idx := &Index{partitions: make([]*partition, n)}
	for i := range idx.partitions {
		idx.partitions[i] = &partition{data: make(map[uint64]map[uint64]timeline)}
	}
	return idx
}

func (idx *Index) partitionFor(section, metricID uint64) *partition {
	h := util.HashMetricID(section, metricID)
	return idx.partitions[h%uint64(len(idx.partitions))]
}

// InsertOrGet inserts a brand-new page at its identity, or returns the
// page already occupying that identity (existed=true) so the caller
// can acquire or retry against it.
func (idx *Index) InsertOrGet(p *page.Page) (found *page.Page, existed bool) {
	part := idx.partitionFor(p.ID.Section, p.ID.MetricID)
	part.mu.Lock()
	defer part.mu.Unlock()

	metrics, ok := part.data[p.ID.Section]
	if !ok {
		metrics = make(map[uint64]timeline)
		part.data[p.ID.Section] = metrics
	}
	tl := metrics[p.ID.MetricID]
	i := tl.search(p.ID.StartTime)
	if i < len(tl) && tl[i].ID.StartTime == p.ID.StartTime {
		return tl[i], true
	}
	tl = append(tl, nil)
	copy(tl[i+1:], tl[i:])
	tl[i] = p
	metrics[p.ID.MetricID] = tl
	return p, false
}

// Remove deletes a page from the index. It is a no-op if the page is
// not present (idempotent under the BEING_DELETED protocol). It cleans
// up empty metric and section maps as it goes.
func (idx *Index) Remove(p *page.Page) {
	part := idx.partitionFor(p.ID.Section, p.ID.MetricID)
	part.mu.Lock()
	defer part.mu.Unlock()

	metrics, ok := part.data[p.ID.Section]
	if !ok {
		return
	}
	tl, ok := metrics[p.ID.MetricID]
	if !ok {
		return
	}
	i := tl.search(p.ID.StartTime)
	if i >= len(tl) || tl[i] != p {
		return
	}
	tl = append(tl[:i], tl[i+1:]...)
	if len(tl) == 0 {
		delete(metrics, p.ID.MetricID)
	} else {
		metrics[p.ID.MetricID] = tl
	}
	if len(metrics) == 0 {
		delete(part.data, p.ID.Section)
	}
}

// Find looks up a page by (section, metric_id, time) using the given
// method. It returns nil when nothing matches.
func (idx *Index) Find(section, metricID uint64, t int64, method Method) *page.Page {
	part := idx.partitionFor(section, metricID)
	part.mu.RLock()
	defer part.mu.RUnlock()

	metrics, ok := part.data[section]
	if !ok {
		return nil
	}
	tl, ok := metrics[metricID]
	if !ok || len(tl) == 0 {
		return nil
	}

	switch method {
	case Exact:
		return tl.find(t)
	case First:
		return tl[0]
	case Last:
		return tl[len(tl)-1]
	case Next:
		i := tl.search(t)
		if i < len(tl) && tl[i].ID.StartTime == t {
			i++
		}
		if i < len(tl) {
			return tl[i]
		}
		return nil
	case Prev:
		i := tl.search(t)
		if i > 0 {
			return tl[i-1]
		}
		return nil
	case Closest:
		return closest(tl, t)
	default:
		return nil
	}
}

// closest implements the CLOSEST rule: exact match first; else the
// greatest-key entry whose end_time >= t; else the least-key entry
// with start_time > t; else nil. Ties between two pages covering t
// prefer the finer update_every, then the earlier start_time.
func closest(tl timeline, t int64) *page.Page {
	if exact := tl.find(t); exact != nil {
		return exact
	}

	i := tl.search(t) // first index with StartTime >= t

	var best *page.Page
	for j := i - 1; j >= 0; j-- {
		if tl[j].EndTime() >= t {
			best = pickFiner(best, tl[j])
		} else {
			break
		}
	}
	if best != nil {
		return best
	}

	if i < len(tl) {
		return tl[i]
	}
	return nil
}

func pickFiner(a, b *page.Page) *page.Page {
	if a == nil {
		return b
	}
	if b.UpdateEverySeconds() != a.UpdateEverySeconds() {
		if b.UpdateEverySeconds() < a.UpdateEverySeconds() {
			return b
		}
		return a
	}
	if b.ID.StartTime < a.ID.StartTime {
		return b
	}
	return a
}
