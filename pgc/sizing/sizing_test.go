package sizing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeNoAutoscale(t *testing.T) {
	cfg := Config{TargetCleanBytes: 1 << 20, Thresholds: DefaultThresholds()}
	s := Snapshot{Hot: 100, Dirty: 50, Clean: 200, CurrentSize: 350}
	u := Compute(cfg, s)
	require.Equal(t, int64(100+50+0+1<<20), u.Wanted)
}

func TestComputeClampsToMinWantedSize(t *testing.T) {
	cfg := Config{TargetCleanBytes: 0, Thresholds: DefaultThresholds()}
	u := Compute(cfg, Snapshot{})
	require.Equal(t, int64(65536), u.Wanted)
}

func TestComputeSignalsEvictionUnderPressure(t *testing.T) {
	cfg := Config{TargetCleanBytes: 100_000, Thresholds: DefaultThresholds()}
	s := Snapshot{Clean: 1_000_000, CurrentSize: 1_100_000}
	u := Compute(cfg, s)
	require.Greater(t, u.Per1000, int64(980))
	require.True(t, u.NeedsEvictorThread)
	require.Greater(t, u.SizeToEvict, int64(0))
}

func TestComputeAutoscaleUsesDynamicTarget(t *testing.T) {
	cfg := Config{
		Autoscale:        true,
		TargetCleanBytes: 100,
		Thresholds:       DefaultThresholds(),
		DynamicTarget: func(hot, dirty int64) int64 {
			return 5_000_000
		},
	}
	u := Compute(cfg, Snapshot{Hot: 10, HotMax: 10, Dirty: 5, DirtyMax: 5})
	require.GreaterOrEqual(t, u.Wanted, int64(5_000_000))
}

func TestGuardCachesLast(t *testing.T) {
	var g Guard
	calls := 0
	u := g.Compute(func() Usage {
		calls++
		return Usage{Wanted: 42}
	})
	require.EqualValues(t, 42, u.Wanted)
	require.Equal(t, 1, calls)
	require.EqualValues(t, 42, g.Last().Wanted)
}
