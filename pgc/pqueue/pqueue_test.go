package pqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyxtsdb/pgc/page"
)

func newTestPage(section, metric uint64, start int64, size int64) *page.Page {
	return page.New(page.ID{Section: section, MetricID: metric, StartTime: start}, page.FlagHot, start, 1, size, 0, nil)
}

func TestSectionQueueFIFOOrder(t *testing.T) {
	q := NewSectionQueue()
	p1 := newTestPage(1, 1, 100, 10)
	p2 := newTestPage(1, 2, 200, 20)
	q.Add(p1)
	q.Add(p2)

	var order []int64
	q.Section(1).Walk(func(p *page.Page) bool {
		order = append(order, p.ID.StartTime)
		return true
	})
	require.Equal(t, []int64{100, 200}, order)
	require.EqualValues(t, 2, q.Stats.Snapshot().Entries)
	require.EqualValues(t, 30, q.Stats.Snapshot().Size)

	q.Remove(p1)
	require.EqualValues(t, 1, q.Stats.Snapshot().Entries)
	require.EqualValues(t, 20, q.Stats.Snapshot().Size)
}

func TestCleanQueueNeverAccessedGoesToHead(t *testing.T) {
	q := NewCleanQueue()
	accessed := newTestPage(1, 1, 100, 10)
	accessed.MarkAccessed()
	fresh := newTestPage(1, 2, 200, 10)

	q.Add(accessed)
	q.Add(fresh)

	front := q.Front()
	require.Equal(t, fresh.ID, front.ID, "never-accessed page should be the evict-first head")
}

func TestCleanQueueMoveToTail(t *testing.T) {
	q := NewCleanQueue()
	a := newTestPage(1, 1, 100, 10)
	b := newTestPage(1, 2, 200, 10)
	q.Add(a)
	q.Add(b)

	q.MoveToTail(a)
	require.Equal(t, b.ID, q.Front().ID)
	require.Nil(t, q.Next(q.Next(q.Front())))
}
