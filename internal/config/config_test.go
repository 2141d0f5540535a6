package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "planweaver", cfg.Name)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, "standard", cfg.Simulation.Mode)
	assert.Equal(t, 0.7, cfg.Evaluation.PassThreshold)
	assert.Equal(t, 5, cfg.Router.MaxCandidates)
	assert.False(t, cfg.Store.Enabled)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".planweaver", "config.yaml")

	cfg := DefaultConfig()
	cfg.Simulation.Seed = 777
	cfg.Simulation.Mode = "thorough"
	cfg.Router.MinScore = 0.65
	cfg.Logging.DebugMode = true
	cfg.Logging.Categories = map[string]bool{"simulate": true, "store": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(777), loaded.Simulation.Seed)
	assert.Equal(t, "thorough", loaded.Simulation.Mode)
	assert.Equal(t, 0.65, loaded.Router.MinScore)
	assert.True(t, loaded.Logging.DebugMode)
	assert.False(t, loaded.Logging.Categories["store"])
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  seed: 9\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9), cfg.Simulation.Seed)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.7, cfg.Evaluation.PassThreshold)
	assert.Equal(t, 5, cfg.Router.MaxCandidates)
}

func TestMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PLANWEAVER_DB_PATH", "/tmp/override.db")
	t.Setenv("PLANWEAVER_SEED", "1234")
	t.Setenv("PLANWEAVER_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Store.DatabasePath)
	assert.Equal(t, int64(1234), cfg.Simulation.Seed)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestBadEnvValuesAreIgnored(t *testing.T) {
	t.Setenv("PLANWEAVER_SEED", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
}
