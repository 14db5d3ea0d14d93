package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeData struct{ n int }

func (f fakeData) NominalSize() int { return f.n }

func TestNewPageInitialState(t *testing.T) {
	p := New(ID{Section: 1, MetricID: 10, StartTime: 100}, FlagHot, 1000, 1, 4096, 11, fakeData{4096})
	require.Equal(t, FlagHot, p.State())
	require.EqualValues(t, 1, p.Refcount.Load())
	require.EqualValues(t, 1000, p.EndTime())
	require.Len(t, p.CustomData, 11)
}

func TestSetStatePreservesIndependentBits(t *testing.T) {
	p := New(ID{Section: 1, MetricID: 1, StartTime: 0}, FlagHot, 0, 0, 1, 0, nil)
	p.SetFlag(FlagHasBeenAccessed)
	p.SetState(FlagDirty)
	require.Equal(t, FlagDirty, p.State())
	require.True(t, p.HasFlag(FlagHasBeenAccessed))
}

func TestMarkAccessed(t *testing.T) {
	p := New(ID{Section: 1, MetricID: 1, StartTime: 0}, FlagClean, 0, 0, 1, 0, nil)
	require.False(t, p.HasFlag(FlagHasBeenAccessed))
	p.MarkAccessed()
	require.EqualValues(t, 1, p.Accesses())
	require.True(t, p.HasFlag(FlagHasBeenAccessed))
	p.ResetAccesses()
	require.EqualValues(t, 0, p.Accesses())
	require.False(t, p.HasFlag(FlagHasBeenAccessed))
}
