package pqueue

import "go.uber.org/atomic"

// Stats holds the counters every queue exposes.
type Stats struct {
	Entries    atomic.Int64
	Size       atomic.Int64
	MaxEntries atomic.Int64
	MaxSize    atomic.Int64

	AddedEntries   atomic.Int64
	AddedSize      atomic.Int64
	RemovedEntries atomic.Int64
	RemovedSize    atomic.Int64

	Histogram *SizeHistogram
}

func newStats() *Stats {
	return &Stats{Histogram: newSizeHistogram()}
}

func (s *Stats) onAdd(size int64) {
	e := s.Entries.Add(1)
	sz := s.Size.Add(size)
	s.AddedEntries.Add(1)
	s.AddedSize.Add(size)
	s.Histogram.Add(size)
	bumpMax(&s.MaxEntries, e)
	bumpMax(&s.MaxSize, sz)
}

func (s *Stats) onRemove(size int64) {
	s.Entries.Sub(1)
	s.Size.Sub(size)
	s.RemovedEntries.Add(1)
	s.RemovedSize.Add(size)
	s.Histogram.Remove(size)
}

func (s *Stats) onResize(delta int64) {
	s.Size.Add(delta)
	if delta > 0 {
		s.AddedSize.Add(delta)
	} else {
		s.RemovedSize.Add(-delta)
	}
	bumpMax(&s.MaxSize, s.Size.Load())
}

func bumpMax(slot *atomic.Int64, v int64) {
	for {
		cur := slot.Load()
		if v <= cur {
			return
		}
		if slot.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Snapshot is a point-in-time, non-atomic-as-a-whole read of Stats.
type Snapshot struct {
	Entries, Size, MaxEntries, MaxSize                     int64
	AddedEntries, AddedSize, RemovedEntries, RemovedSize    int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Entries:        s.Entries.Load(),
		Size:           s.Size.Load(),
		MaxEntries:     s.MaxEntries.Load(),
		MaxSize:        s.MaxSize.Load(),
		AddedEntries:   s.AddedEntries.Load(),
		AddedSize:      s.AddedSize.Load(),
		RemovedEntries: s.RemovedEntries.Load(),
		RemovedSize:    s.RemovedSize.Load(),
	}
}
