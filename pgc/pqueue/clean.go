// CLEAN queue: a single global LRU list. Insertion policy
// depends on whether the page has ever been accessed: accessed pages
// go to the tail (most-recently-used, evict-last); never-accessed
// pages go to the head (evict-first candidates).
package pqueue

import (
	"container/list"
	"sync"

	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/waitlock"
)

// CleanQueue is the global CLEAN LRU.
type CleanQueue struct {
	Lock  *waitlock.Lock
	Stats *Stats

	mu   sync.Mutex
	list *list.List
}

func NewCleanQueue() *CleanQueue {
	return &CleanQueue{
		Lock:  waitlock.New(),
		Stats: newStats(),
		list:  list.New(),
	}
}

// Add inserts p at the head if it has never been accessed (an
// evict-first candidate), or at the tail otherwise. Caller must hold
// Lock.
func (q *CleanQueue) Add(p *page.Page) {
	q.mu.Lock()
	if (p.Accesses() > 0 || p.HasFlag(page.FlagHasBeenAccessed)) && !p.HasFlag(page.FlagIgnoreAccesses) {
		p.ListElem = q.list.PushBack(p)
	} else {
		p.ListElem = q.list.PushFront(p)
	}
	q.mu.Unlock()
	q.Stats.onAdd(p.AssumedSize())
}

// Remove unlinks p. Caller must hold Lock.
func (q *CleanQueue) Remove(p *page.Page) {
	q.mu.Lock()
	if p.ListElem != nil {
		q.list.Remove(p.ListElem)
		p.ListElem = nil
	}
	q.mu.Unlock()
	q.Stats.onRemove(p.AssumedSize())
}

// MoveToTail relinks p at the most-recently-used end. Caller must hold
// Lock.
func (q *CleanQueue) MoveToTail(p *page.Page) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p.ListElem != nil {
		q.list.MoveToBack(p.ListElem)
	}
}

// Front returns the least-recently-used page without removing it, or
// nil if the queue is empty. Caller must hold Lock.
func (q *CleanQueue) Front() *page.Page {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.list.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*page.Page)
}

// Next returns the page following p in LRU order, or nil at the tail.
// Caller must hold Lock.
func (q *CleanQueue) Next(p *page.Page) *page.Page {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p.ListElem == nil || p.ListElem.Next() == nil {
		return nil
	}
	return p.ListElem.Next().Value.(*page.Page)
}

// Len returns the number of pages currently linked in CLEAN.
func (q *CleanQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}
