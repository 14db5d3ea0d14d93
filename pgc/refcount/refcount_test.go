package refcount

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	c := New(1)
	require.True(t, c.Acquire())
	require.EqualValues(t, 2, c.Load())
	require.EqualValues(t, 1, c.Release())
	require.EqualValues(t, 0, c.Release())
}

func TestAcquireEdgeReportsZeroToOneTransition(t *testing.T) {
	c := New(0)
	ok, became := c.AcquireEdge()
	require.True(t, ok)
	require.True(t, became)

	ok, became = c.AcquireEdge()
	require.True(t, ok)
	require.False(t, became)
}

func TestAcquireForDeletionRequiresZero(t *testing.T) {
	c := New(1)
	require.False(t, c.AcquireForDeletion(), "non-zero refcount must not be deletable")

	c.Release()
	require.True(t, c.AcquireForDeletion())
	require.True(t, c.IsDeleted())
}

func TestAcquireFailsOnceDeleted(t *testing.T) {
	c := New(0)
	require.True(t, c.AcquireForDeletion())
	require.False(t, c.Acquire())
}

func TestReleaseAndAcquireForDeletion(t *testing.T) {
	c := New(2)
	require.False(t, c.ReleaseAndAcquireForDeletion())
	require.True(t, c.ReleaseAndAcquireForDeletion())
	require.True(t, c.IsDeleted())
}

func TestConcurrentAcquireNeverObservesLiveAfterDeletion(t *testing.T) {
	for i := 0; i < 200; i++ {
		c := New(1)
		var wg sync.WaitGroup
		var successfulAcquires, failedAcquires int32
		var deleted bool
		var mu sync.Mutex

		wg.Add(2)
		go func() {
			defer wg.Done()
			ok := c.ReleaseAndAcquireForDeletion()
			mu.Lock()
			deleted = ok
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			if c.Acquire() {
				mu.Lock()
				successfulAcquires++
				mu.Unlock()
				c.Release()
			} else {
				mu.Lock()
				failedAcquires++
				mu.Unlock()
			}
		}()
		wg.Wait()
		require.EqualValues(t, 1, successfulAcquires+failedAcquires)
		if deleted {
			require.True(t, c.IsDeleted())
			require.False(t, c.Acquire(), "a deleted counter must never be acquired again")
		} else {
			// The deleter only fails to reach zero while the other
			// goroutine holds a reference.
			require.EqualValues(t, 1, successfulAcquires)
		}
	}
}
