// Package config loads page-cache tuning parameters from an ini file,
// following the same gopkg.in/ini.v1 pattern the rest of this project's
// lineage uses for its server configuration.
package config

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/mem"
	"gopkg.in/ini.v1"

	"github.com/nyxtsdb/pgc"
	"github.com/nyxtsdb/pgc/logger"
	"github.com/nyxtsdb/pgc/sizing"
)

// Tuning is every knob of pgc.Config that sensibly comes from a config
// file — everything except the callbacks and Name, which the caller
// always supplies in code.
type Tuning struct {
	CleanSizeMB int

	MaxDirtyPagesPerFlush        int
	MaxPagesPerInlineEviction    int
	MaxInlineEvictors            int
	MaxSkipPagesPerInlineEviction int
	MaxFlushesInline              int

	Partitions             int
	AdditionalBytesPerPage int64
	CustomDataLen          int

	EvictNoInline bool
	FlushNoInline bool
	Autoscale     bool

	OOMProtectPercent int
	UseAllRAM         bool

	ThresholdSevere     int64
	ThresholdAggressive int64
	ThresholdHealthy    int64
	ThresholdLowWater   int64
}

// Defaults mirrors the zero-value defaults pgc.Create applies itself
// (batch sizes, partitions, options, thresholds), spelled out so a
// written-out config file has something sane to diff against. It also
// sets a 256 MiB clean size and 64 bytes of per-page overhead, which
// Create leaves at zero when they are not given.
func Defaults() Tuning {
	th := sizing.DefaultThresholds()
	return Tuning{
		CleanSizeMB:                   256,
		MaxDirtyPagesPerFlush:         256,
		MaxPagesPerInlineEviction:     16,
		MaxInlineEvictors:             1,
		MaxSkipPagesPerInlineEviction: 64,
		MaxFlushesInline:              1,
		Partitions:                    0,
		AdditionalBytesPerPage:        64,
		CustomDataLen:                 0,
		EvictNoInline:                 true,
		FlushNoInline:                 false,
		Autoscale:                     true,
		OOMProtectPercent:             0,
		UseAllRAM:                     false,
		ThresholdSevere:               th.Severe,
		ThresholdAggressive:           th.Aggressive,
		ThresholdHealthy:              th.Healthy,
		ThresholdLowWater:             th.LowWater,
	}
}

// Load reads the "[pgc]" section of path, falling back to Defaults()
// for any key that is absent. A missing file is not an error; callers
// that want a file to be mandatory should os.Stat it themselves first.
func Load(path string) (Tuning, error) {
	t := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("config: %s not found, using defaults", path)
		return t, nil
	}

	raw, err := ini.Load(path)
	if err != nil {
		return t, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	sec := raw.Section("pgc")

	t.CleanSizeMB = sec.Key("clean_size_mb").MustInt(t.CleanSizeMB)
	t.MaxDirtyPagesPerFlush = sec.Key("max_dirty_pages_per_flush").MustInt(t.MaxDirtyPagesPerFlush)
	t.MaxPagesPerInlineEviction = sec.Key("max_pages_per_inline_eviction").MustInt(t.MaxPagesPerInlineEviction)
	t.MaxInlineEvictors = sec.Key("max_inline_evictors").MustInt(t.MaxInlineEvictors)
	t.MaxSkipPagesPerInlineEviction = sec.Key("max_skip_pages_per_inline_eviction").MustInt(t.MaxSkipPagesPerInlineEviction)
	t.MaxFlushesInline = sec.Key("max_flushes_inline").MustInt(t.MaxFlushesInline)
	t.Partitions = sec.Key("partitions").MustInt(t.Partitions)
	t.AdditionalBytesPerPage = int64(sec.Key("additional_bytes_per_page").MustInt(int(t.AdditionalBytesPerPage)))
	t.CustomDataLen = sec.Key("custom_data_len").MustInt(t.CustomDataLen)
	t.EvictNoInline = sec.Key("evict_no_inline").MustBool(t.EvictNoInline)
	t.FlushNoInline = sec.Key("flush_no_inline").MustBool(t.FlushNoInline)
	t.Autoscale = sec.Key("autoscale").MustBool(t.Autoscale)
	t.OOMProtectPercent = sec.Key("oom_protect_percent").MustInt(t.OOMProtectPercent)
	t.UseAllRAM = sec.Key("use_all_ram").MustBool(t.UseAllRAM)
	t.ThresholdSevere = int64(sec.Key("threshold_severe").MustInt(int(t.ThresholdSevere)))
	t.ThresholdAggressive = int64(sec.Key("threshold_aggressive").MustInt(int(t.ThresholdAggressive)))
	t.ThresholdHealthy = int64(sec.Key("threshold_healthy").MustInt(int(t.ThresholdHealthy)))
	t.ThresholdLowWater = int64(sec.Key("threshold_low_water").MustInt(int(t.ThresholdLowWater)))

	return t, nil
}

// Options renders the EvictNoInline/FlushNoInline/Autoscale trio into
// pgc's Options bitmask.
func (t Tuning) Options() pgc.Options {
	var o pgc.Options
	if t.EvictNoInline {
		o |= pgc.OptEvictNoInline
	}
	if t.FlushNoInline {
		o |= pgc.OptFlushNoInline
	}
	if t.Autoscale {
		o |= pgc.OptAutoscale
	}
	return o
}

// ApplyTo fills in the tunable fields of cfg from t, leaving the
// caller's callbacks and Name untouched.
func (t Tuning) ApplyTo(cfg *pgc.Config) {
	cfg.CleanSizeBytes = int64(t.CleanSizeMB) * 1024 * 1024
	cfg.MaxDirtyPagesPerFlush = t.MaxDirtyPagesPerFlush
	cfg.MaxPagesPerInlineEviction = t.MaxPagesPerInlineEviction
	cfg.MaxInlineEvictors = t.MaxInlineEvictors
	cfg.MaxSkipPagesPerInlineEviction = t.MaxSkipPagesPerInlineEviction
	cfg.MaxFlushesInline = t.MaxFlushesInline
	cfg.Partitions = t.Partitions
	cfg.AdditionalBytesPerPage = t.AdditionalBytesPerPage
	cfg.CustomDataLen = t.CustomDataLen
	cfg.Options = t.Options()
	cfg.UseAllRAM = t.UseAllRAM
	if t.OOMProtectPercent > 0 {
		if vm, err := mem.VirtualMemory(); err == nil {
			cfg.OOMProtectBytes = int64(vm.Total) * int64(t.OOMProtectPercent) / 100
		}
	}
	cfg.Thresholds.Severe = t.ThresholdSevere
	cfg.Thresholds.Aggressive = t.ThresholdAggressive
	cfg.Thresholds.Healthy = t.ThresholdHealthy
	cfg.Thresholds.LowWater = t.ThresholdLowWater
}
