package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("DAYREFS_LOG_LEVEL", "")
	t.Setenv("DAYREFS_METRICS_ADDR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Copy.Workers)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AWS_PROFILE", "daylily")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "eu-central-1")
	t.Setenv("DAYREFS_LOG_LEVEL", "debug")
	t.Setenv("DAYREFS_METRICS_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "daylily", cfg.AWS.Profile)
	assert.Equal(t, "eu-central-1", cfg.AWS.Region)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("DAYREFS_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "dayrefs.yaml")
	body := `
aws:
  profile: pipeline
  region: us-west-2
log:
  level: warn
  format: json
copy:
  workers: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pipeline", cfg.AWS.Profile)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Copy.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadClampsWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dayrefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("copy:\n  workers: 0\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Copy.Workers)
}
