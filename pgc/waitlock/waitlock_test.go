package waitlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireFailsWhenHeld(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquire(Collectors))
	require.False(t, l.TryAcquire(Collectors))
	l.Release()
	require.True(t, l.TryAcquire(Collectors))
}

func TestHighestPriorityWakesFirst(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquire(Collectors))

	order := make(chan Priority, 3)
	var wg sync.WaitGroup
	start := func(p Priority) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire(p)
			order <- p
			l.Release()
		}()
	}

	// Queue lowest-priority waiters first so a FIFO-only lock would
	// serve them first; the priority lock must not.
	start(LowPriority)
	time.Sleep(20 * time.Millisecond)
	start(Flushers)
	time.Sleep(20 * time.Millisecond)
	start(Collectors)
	time.Sleep(20 * time.Millisecond)

	l.Release() // release the initial holder, waking the highest-priority waiter

	first := <-order
	require.Equal(t, Collectors, first)

	wg.Wait()
	close(order)
	var rest []Priority
	for p := range order {
		rest = append(rest, p)
	}
	require.Equal(t, []Priority{Flushers, LowPriority}, rest)
}

func TestSamePriorityIsFIFO(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquire(Evictors))

	order := make(chan int, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire(Evictors)
			order <- i
			l.Release()
		}()
		time.Sleep(10 * time.Millisecond)
	}

	l.Release()
	wg.Wait()
	close(order)

	var got []int
	for v := range order {
		got = append(got, v)
	}
	require.Equal(t, []int{0, 1, 2}, got)
}
