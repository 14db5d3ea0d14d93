package pgc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxtsdb/pgc/page"
	"github.com/nyxtsdb/pgc/pageindex"
)

type fakeData struct{ n int }

func (f *fakeData) NominalSize() int { return f.n }

func newTestCache(t *testing.T, save SaveDirtyFunc) *Cache {
	t.Helper()
	var freed int
	c := Create(Config{
		Name:           "test",
		CleanSizeBytes: 1 << 20,
		FreeCleanPage: func(_ *Cache, _ PageDescriptor) {
			freed++
		},
		SaveDirty: save,
	})
	t.Cleanup(func() {
		_ = c.Destroy(false)
	})
	return c
}

func TestAddAndAcquireThenFindExact(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	p, added, err := c.AddAndAcquire(Entry{Section: 1, MetricID: 10, StartTime: 100, EndTime: 200, Size: 64, Hot: true, Data: &fakeData{64}})
	require.NoError(t, err)
	assert.True(t, added)
	require.NotNil(t, p)

	found := c.GetAndAcquire(1, 10, 100, pageindex.Exact)
	require.NotNil(t, found)
	assert.Equal(t, p, found)
	c.Release(found)
	c.Release(p)
}

func TestAddAndAcquireSecondCallFindsExisting(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	p1, added1, err := c.AddAndAcquire(Entry{Section: 1, MetricID: 10, StartTime: 100, EndTime: 200, Size: 64, Hot: true, Data: &fakeData{64}})
	require.NoError(t, err)
	assert.True(t, added1)

	p2, added2, err := c.AddAndAcquire(Entry{Section: 1, MetricID: 10, StartTime: 100, EndTime: 200, Size: 64, Hot: true, Data: &fakeData{64}})
	require.NoError(t, err)
	assert.False(t, added2)
	assert.Same(t, p1, p2)

	c.Release(p1)
	c.Release(p2)
}

func TestHotToDirtyToCleanViaFlush(t *testing.T) {
	var saved []PageDescriptor
	c := newTestCache(t, func(_ *Cache, entries []PageDescriptor, _ []*page.Page) error {
		saved = append(saved, entries...)
		return nil
	})

	p, _, err := c.AddAndAcquire(Entry{Section: 2, MetricID: 1, StartTime: 10, EndTime: 20, Size: 32, Hot: true, Data: &fakeData{32}})
	require.NoError(t, err)

	c.HotToDirtyAndRelease(p, true)
	assert.Equal(t, page.FlagDirty, p.State())

	n, err := c.FlushDirty(SectionAll)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, page.FlagClean, p.State())
	assert.Len(t, saved, 1)
}

func TestFlushFailureKeepsPageDirty(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error {
		return ErrSaveDirtyFailed
	})

	p, _, err := c.AddAndAcquire(Entry{Section: 3, MetricID: 1, StartTime: 10, EndTime: 20, Size: 32, Hot: true, Data: &fakeData{32}})
	require.NoError(t, err)
	c.HotToDirtyAndRelease(p, true)

	_, err = c.FlushDirty(SectionAll)
	assert.Error(t, err)
	assert.Equal(t, page.FlagDirty, p.State())
}

func TestToCleanEvictOrReleaseEvictsUnreferencedPage(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	p, _, err := c.AddAndAcquire(Entry{Section: 4, MetricID: 1, StartTime: 1, EndTime: 2, Size: 16, Hot: true, Data: &fakeData{16}})
	require.NoError(t, err)

	evicted := c.ToCleanEvictOrRelease(p)
	assert.True(t, evicted)

	found := c.GetAndAcquire(4, 1, 1, pageindex.Exact)
	assert.Nil(t, found)
}

func TestEvictPagesFreesUnreferencedCleanPages(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	for i := int64(0); i < 5; i++ {
		p, _, err := c.AddAndAcquire(Entry{Section: 5, MetricID: uint64(i), StartTime: i, EndTime: i + 1, Size: 8, Hot: false, Data: &fakeData{8}})
		require.NoError(t, err)
		c.Release(p)
	}

	evicted, _ := c.EvictPages(100, 100)
	assert.Equal(t, 5, evicted)
	assert.Zero(t, c.clean.Len())
}

func TestGetAndAcquireClosestPicksCoveringPage(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	p, _, err := c.AddAndAcquire(Entry{Section: 6, MetricID: 1, StartTime: 100, EndTime: 200, Size: 8, Hot: false, Data: &fakeData{8}})
	require.NoError(t, err)
	c.Release(p)

	found := c.GetAndAcquire(6, 1, 150, pageindex.Closest)
	require.NotNil(t, found)
	assert.Equal(t, int64(100), found.ID.StartTime)
	c.Release(found)
}

func TestConcurrentAddAndAcquireConvergesOnOnePage(t *testing.T) {
	c := newTestCache(t, func(*Cache, []PageDescriptor, []*page.Page) error { return nil })

	const n = 32
	results := make([]*page.Page, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			p, _, err := c.AddAndAcquire(Entry{Section: 7, MetricID: 1, StartTime: 1, EndTime: 2, Size: 8, Hot: true, Data: &fakeData{8}})
			if err == nil {
				results[i] = p
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.NotNil(t, results[i])
		assert.Same(t, results[0], results[i])
	}
	for _, p := range results {
		c.Release(p)
	}
}

func TestDestroyFlushesAndReportsNoLeftoverReferences(t *testing.T) {
	c := Create(Config{
		Name:           "destroy-test",
		CleanSizeBytes: 1 << 20,
		FreeCleanPage:  func(*Cache, PageDescriptor) {},
		SaveDirty:      func(*Cache, []PageDescriptor, []*page.Page) error { return nil },
	})

	p, _, err := c.AddAndAcquire(Entry{Section: 8, MetricID: 1, StartTime: 1, EndTime: 2, Size: 8, Hot: true, Data: &fakeData{8}})
	require.NoError(t, err)
	c.HotToDirtyAndRelease(p, true)

	require.NoError(t, c.Destroy(true))
}
