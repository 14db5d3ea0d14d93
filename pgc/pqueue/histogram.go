package pqueue

import "go.uber.org/atomic"

// histogramBuckets are the upper bounds, doubling from 32 bytes up to
// 128 KiB; the last bucket catches everything above that.
var histogramBuckets = buildBuckets()

func buildBuckets() []int64 {
	bounds := []int64{0}
	for b := int64(32); b <= 128*1024; b *= 2 {
		bounds = append(bounds, b)
	}
	return bounds
}

// SizeHistogram counts page sizes into fixed geometric buckets.
type SizeHistogram struct {
	counts []atomic.Int64
}

func newSizeHistogram() *SizeHistogram {
	return &SizeHistogram{counts: make([]atomic.Int64, len(histogramBuckets)+1)}
}

func bucketIndex(size int64) int {
	for i, bound := range histogramBuckets {
		if size <= bound {
			return i
		}
	}
	return len(histogramBuckets)
}

func (h *SizeHistogram) Add(size int64)    { h.counts[bucketIndex(size)].Add(1) }
func (h *SizeHistogram) Remove(size int64) { h.counts[bucketIndex(size)].Sub(1) }

// Snapshot returns a copy of the current bucket counts.
func (h *SizeHistogram) Snapshot() []int64 {
	out := make([]int64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}
