package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()

	assert.Equal(t, "index.db", c.DBPath)
	assert.Equal(t, "logs", c.LogDir)
	assert.Equal(t, 2.0, c.IdleThresholdSeconds)
	assert.Equal(t, 30, c.AutoIndexIntervalMinutes)
	assert.Equal(t, 300, c.RetryIntervalSeconds)
	assert.Equal(t, int64(100*1024*1024), c.MaxFileSizeBytes)
	assert.Equal(t, 60, c.ExtractionTimeoutSeconds)
	assert.Equal(t, 30, c.HWPTimeoutSeconds)
	assert.Equal(t, 30, c.TombstoneGCDays)
}

func TestValidateRequiresRoots(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.Error(t, err)

	c.Roots = []string{"/tmp/docs"}
	require.NoError(t, c.Validate())
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("FS_MAX_SIZE", "12345")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "roots:\n  - /tmp/docs\nmaxFileSizeBytes: ${FS_MAX_SIZE}\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/docs"}, cfg.Roots)
	assert.Equal(t, int64(12345), cfg.MaxFileSizeBytes)
	assert.Equal(t, 30, cfg.RetryIntervalSeconds)
}

func TestIdleThresholdDuration(t *testing.T) {
	c := Default()
	c.IdleThresholdSeconds = 2.5
	assert.Equal(t, 2500_000_000.0, float64(c.IdleThreshold()))
}
