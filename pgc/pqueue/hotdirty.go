// HOT and DIRTY queues: an ordered map of section -> section_pages,
// where each section_pages is a FIFO linked list of in-flight pages in
// insertion order.
package pqueue

import (
	"container/list"
	"sync"

	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// SectionPages is the per-section FIFO of HOT or DIRTY pages.
type SectionPages struct {
	list    *list.List
	Entries int64
	Size    int64
}

// SectionQueue is the HOT or DIRTY queue shape: sections keyed in a
// map, each holding its own insertion-ordered list.
type SectionQueue struct {
	Lock *waitlock.Lock
	Stats *Stats

	mu       sync.Mutex // protects the sections map itself
	sections map[uint64]*SectionPages
}

// NewSectionQueue constructs an empty HOT or DIRTY queue.
func NewSectionQueue() *SectionQueue {
	return &SectionQueue{
		Lock:     waitlock.New(),
		Stats:    newStats(),
		sections: make(map[uint64]*SectionPages),
	}
}

// Add appends p to the tail of its section's list. Caller must hold
// Lock at the priority appropriate to the operation.
func (q *SectionQueue) Add(p *page.Page) {
	q.mu.Lock()
	sp, ok := q.sections[p.ID.Section]
	if !ok {
		sp = &SectionPages{list: list.New()}
		q.sections[p.ID.Section] = sp
	}
	q.mu.Unlock()

	p.ListElem = sp.list.PushBack(p)
	sp.Entries++
	sp.Size += p.AssumedSize()
	q.Stats.onAdd(p.AssumedSize())
}

// Remove unlinks p from its section's list. Caller must hold Lock.
func (q *SectionQueue) Remove(p *page.Page) {
	q.mu.Lock()
	sp, ok := q.sections[p.ID.Section]
	q.mu.Unlock()
	if !ok || p.ListElem == nil {
		return
	}

	sp.list.Remove(p.ListElem)
	sp.Entries--
	sp.Size -= p.AssumedSize()
	p.ListElem = nil
	q.Stats.onRemove(p.AssumedSize())

	if sp.Entries == 0 {
		q.mu.Lock()
		delete(q.sections, p.ID.Section)
		q.mu.Unlock()
	}
}

// Resize accounts for a page's assumed_size growing in place. p's
// assumed size must already include sectionDelta; the page moves from
// the histogram bucket of its old size to that of its new size.
func (q *SectionQueue) Resize(p *page.Page, sectionDelta int64) {
	q.mu.Lock()
	sp, ok := q.sections[p.ID.Section]
	q.mu.Unlock()
	if ok {
		sp.Size += sectionDelta
	}
	q.Stats.onResize(sectionDelta)
	q.Stats.Histogram.Remove(p.AssumedSize() - sectionDelta)
	q.Stats.Histogram.Add(p.AssumedSize())
}

// Section returns the section_pages record for s, or nil if the
// section has no pages in this queue. Walkers (e.g. bulk HOT->DIRTY
// conversion, flush batching) must hold Lock for the duration of the
// walk.
func (q *SectionQueue) Section(s uint64) *SectionPages {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sections[s]
}

// Sections returns the set of section IDs currently present. Used by
// bulk operations that iterate every section (pgc.SectionAll).
func (q *SectionQueue) Sections() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uint64, 0, len(q.sections))
	for s := range q.sections {
		out = append(out, s)
	}
	return out
}

// Walk calls fn for every page in the section, in insertion order,
// stopping early if fn returns false. Caller must hold Lock.
func (sp *SectionPages) Walk(fn func(*page.Page) bool) {
	if sp == nil {
		return
	}
	for e := sp.list.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(*page.Page)) {
			return
		}
	}
}

func (sp *SectionPages) EntryCount() int64 {
	if sp == nil {
		return 0
	}
	return sp.Entries
}
