package pgc

import "github.com/nyxtsdb/pgc/page"

// PageDescriptor is the owned, page-lifetime-independent view of a
// page handed to the free and save callbacks.
type PageDescriptor struct {
	ID                 page.ID
	EndTime            int64
	UpdateEverySeconds uint32
	Size               int64
	Data               page.Data
}

func describe(p *page.Page) PageDescriptor {
	return PageDescriptor{
		ID:                 p.ID,
		EndTime:            p.EndTime(),
		UpdateEverySeconds: p.UpdateEverySeconds(),
		Size:               p.AssumedSize(),
		Data:               p.Data,
	}
}

// FreeCleanPageFunc releases the user-owned data behind a CLEAN page
// that is being evicted. It must not block on cache locks.
type FreeCleanPageFunc func(cache *Cache, entry PageDescriptor)

// SaveDirtyInitFunc is called once per section immediately before a
// batch of that section's dirty pages is handed to SaveDirtyFunc.
type SaveDirtyInitFunc func(cache *Cache, section uint64)

// SaveDirtyFunc must durably persist entries before returning nil; a
// non-nil error leaves the corresponding pages DIRTY.
type SaveDirtyFunc func(cache *Cache, entries []PageDescriptor, pages []*page.Page) error

// DynamicTargetCacheSizeFunc lets the user override the autoscaler's
// floor for wanted cache size.
type DynamicTargetCacheSizeFunc func() int64

// NominalPageSizeFunc reports a page-data payload's size in bytes,
// used when the caller does not supply an explicit size.
type NominalPageSizeFunc func(data page.Data) int
