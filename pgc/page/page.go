// Package page defines the Page type cached by the rest of pgc: an immutable identity plus a mutable state bag guarded by
// a transition lock and a lock-free refcount.
package page

import (
	"container/list"
	"sync"

	"go.uber.org/atomic"

	"github.com/nyxtsdb/pgc/refcount"
)

// ID is the immutable identity of a page. Two pages with the same ID
// can never be simultaneously live.
type ID struct {
	Section   uint64
	MetricID  uint64
	StartTime int64
}

// Flag is one bit of the page's flags bitfield.
type Flag uint32

const (
	FlagHot Flag = 1 << iota
	FlagDirty
	FlagClean
	FlagBeingDeleted
	FlagBeingMigrated
	FlagIgnoreAccesses
	FlagHasBeenAccessed
)

const stateMask = FlagHot | FlagDirty | FlagClean

// Data is the opaque, user-owned payload a page carries. The cache
// core never interprets it; it only asks for its size and later hands
// it back to the free callback.
type Data interface {
	// NominalSize reports the payload size in bytes, excluding the
	// cache's own per-page bookkeeping overhead.
	NominalSize() int
}

// Page is one cached time range of one metric. All exported accessors
// are safe to call concurrently; mutations to the flags/queue-linkage
// invariant must hold TransitionLock.
type Page struct {
	ID ID

	Refcount *refcount.Count

	TransitionLock sync.Mutex

	flags atomic.Uint32

	endTime           atomic.Int64
	updateEverySecs   atomic.Uint32
	assumedSize       atomic.Int64
	accesses          atomic.Uint32

	Data Data

	// CustomData is a fixed-length tail the caller can read/write
	// in place.
	CustomData []byte

	// ListElem links the page into whichever queue currently owns it
	// (a section's HOT/DIRTY list, or the global CLEAN LRU list). Only
	// the owning queue, under its own lock, may touch this.
	ListElem *list.Element
}

// New constructs a page in the given initial state (FlagHot or
// FlagClean) with a starting refcount of 1 — the reference returned
// to the creator.
func New(id ID, initial Flag, endTime int64, updateEvery uint32, assumedSize int64, customDataLen int, data Data) *Page {
	p := &Page{
		ID:         id,
		Refcount:   refcount.New(1),
		CustomData: make([]byte, customDataLen),
		Data:       data,
	}
	p.flags.Store(uint32(initial))
	p.endTime.Store(endTime)
	p.updateEverySecs.Store(updateEvery)
	p.assumedSize.Store(assumedSize)
	return p
}

func (p *Page) Flags() Flag { return Flag(p.flags.Load()) }

func (p *Page) HasFlag(f Flag) bool { return Flag(p.flags.Load())&f != 0 }

// State returns whichever of FlagHot/FlagDirty/FlagClean is currently
// set. Callers mutating state must hold TransitionLock.
func (p *Page) State() Flag { return Flag(p.flags.Load()) & stateMask }

// SetState clears the current state bit and sets newState, leaving the
// independent bits untouched. Must be called with TransitionLock held.
func (p *Page) SetState(newState Flag) {
	for {
		cur := p.flags.Load()
		next := (cur &^ uint32(stateMask)) | uint32(newState)
		if p.flags.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (p *Page) SetFlag(f Flag) {
	for {
		cur := p.flags.Load()
		next := cur | uint32(f)
		if cur == next || p.flags.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (p *Page) ClearFlag(f Flag) {
	for {
		cur := p.flags.Load()
		next := cur &^ uint32(f)
		if cur == next || p.flags.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (p *Page) EndTime() int64 { return p.endTime.Load() }

// SetEndTime stores a new end time. Callers must already have
// validated end >= current end.
func (p *Page) SetEndTime(end int64) { p.endTime.Store(end) }

func (p *Page) UpdateEverySeconds() uint32 { return p.updateEverySecs.Load() }

func (p *Page) SetUpdateEverySeconds(v uint32) { p.updateEverySecs.Store(v) }

func (p *Page) AssumedSize() int64 { return p.assumedSize.Load() }

func (p *Page) AddAssumedSize(delta int64) int64 { return p.assumedSize.Add(delta) }

func (p *Page) Accesses() uint32 { return p.accesses.Load() }

// MarkAccessed bumps the saturating access counter and sets
// FlagHasBeenAccessed.
func (p *Page) MarkAccessed() {
	if v := p.accesses.Load(); v < ^uint32(0) {
		p.accesses.Add(1)
	}
	p.SetFlag(FlagHasBeenAccessed)
}

func (p *Page) ResetAccesses() {
	p.accesses.Store(0)
	p.ClearFlag(FlagHasBeenAccessed)
}
