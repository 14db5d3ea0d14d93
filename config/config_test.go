package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxtsdb/pgc"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	tuning, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), tuning)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgc.ini")
	contents := "[pgc]\nclean_size_mb = 512\nautoscale = false\nevict_no_inline = false\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	tuning, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 512, tuning.CleanSizeMB)
	assert.False(t, tuning.Autoscale)
	assert.False(t, tuning.EvictNoInline)
}

func TestApplyToFillsConfig(t *testing.T) {
	tuning := Defaults()
	tuning.CleanSizeMB = 128

	var cfg pgc.Config
	tuning.ApplyTo(&cfg)

	assert.Equal(t, int64(128*1024*1024), cfg.CleanSizeBytes)
	assert.Equal(t, tuning.MaxDirtyPagesPerFlush, cfg.MaxDirtyPagesPerFlush)
	assert.NotZero(t, cfg.Options&pgc.OptAutoscale)
}
