// Package sizing computes the cache's target size and pressure level.
// It is pure and stateless except for the single-flight guard around
// the (potentially probe-backed) computation, so it can be unit
// tested without a running cache.
package sizing

// Thresholds are the per-mille pressure levels that drive eviction
// decisions.
type Thresholds struct {
	Severe     int64 // evict inline on release
	Aggressive int64 // evict inline on add; wake the evictor thread
	Healthy    int64 // evictor thread should run
	LowWater   int64 // evict down to this watermark
}

// DefaultThresholds are the conservative defaults used when a cache is
// created without explicit thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Severe: 1010, Aggressive: 990, Healthy: 980, LowWater: 970}
}

// Config is the per-cache sizing configuration.
type Config struct {
	TargetCleanBytes int64
	Autoscale        bool
	OOMProtectBytes  int64
	UseAllRAM        bool
	Thresholds       Thresholds

	// DynamicTarget, if set, returns a caller-chosen minimum wanted
	// size given the current hot/dirty sizes.
	DynamicTarget func(hot, dirty int64) int64

	// AvailableMemory, if set, reports free system memory for the
	// OOM-protection adjustment.
	AvailableMemory func() (available int64, ok bool)
}

// Snapshot is the instantaneous input to compute_usage().
type Snapshot struct {
	Hot, HotMax       int64
	Dirty, DirtyMax   int64
	Clean             int64
	Evicting          int64
	Flushing          int64
	CurrentSize       int64
	ReferencedSize    int64
}

// Usage is the output of compute_usage(): the target size, utilization
// and how much to evict, if any.
type Usage struct {
	Wanted       int64
	Per1000      int64
	SizeToEvict  int64
	NeedsEvictorThread bool
}

const minWantedSize = 65536

// Compute derives the wanted cache size and current pressure level
// from a snapshot of queue sizes, applying autoscaling and
// OOM-protection adjustments where configured.
func Compute(cfg Config, s Snapshot) Usage {
	index := s.CurrentSize - (s.Hot + s.Dirty + s.Clean + s.Evicting + s.Flushing)
	if index < 0 {
		index = 0
	}

	var wanted int64
	if cfg.Autoscale {
		hotMax, dirtyMax := s.HotMax, s.DirtyMax
		hotForWanted, dirtyForWanted := s.HotMax, s.DirtyMax

		wanted = min64(2*max64(s.Hot, hotMax), hotMax+max64(2*dirtyMax, (2*hotMax)/3)+index)

		if cfg.DynamicTarget != nil {
			hotForWanted, dirtyForWanted = s.Hot, s.Dirty
			dynamic := cfg.DynamicTarget(hotForWanted, dirtyForWanted)
			wanted = max64(wanted, dynamic)
		}

		wanted = max64(wanted, s.Hot+s.Dirty+index+cfg.TargetCleanBytes)
	} else {
		wanted = s.Hot + s.Dirty + index + cfg.TargetCleanBytes
	}

	minSize := max64(max64(s.ReferencedSize, s.Hot)+s.Dirty+index, s.CurrentSize-s.Clean)

	if cfg.OOMProtectBytes > 0 && cfg.AvailableMemory != nil {
		if available, ok := cfg.AvailableMemory(); ok {
			if available < cfg.OOMProtectBytes {
				wanted -= cfg.OOMProtectBytes - available
			} else if cfg.UseAllRAM {
				wanted += available - cfg.OOMProtectBytes
			}
		}
	}

	wanted = max64(wanted, max64(minSize, minWantedSize))

	var per1000 int64
	if wanted > 0 {
		per1000 = s.CurrentSize * 1000 / wanted
	}

	u := Usage{Wanted: wanted, Per1000: per1000}

	if per1000 >= cfg.Thresholds.Healthy {
		target := threshold(cfg.Thresholds.LowWater, wanted, s.CurrentSize)
		if target > s.Clean {
			target = s.Clean
		}
		if target > 0 {
			u.SizeToEvict = target
		}
		if per1000 >= cfg.Thresholds.Aggressive {
			u.NeedsEvictorThread = true
		}
	}

	return u
}

// threshold computes how many bytes must be evicted to bring
// current_size down to the given per-mille of wanted.
func threshold(per1000 int64, wanted, current int64) int64 {
	target := wanted * per1000 / 1000
	if current <= target {
		return 0
	}
	return current - target
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
