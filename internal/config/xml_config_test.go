package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SerialPlotter.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "exports"), cfg.Storage.ExportsDirectory)
	assert.True(t, cfg.Ingest.AutoVariableUpdate)
	assert.Equal(t, 800_000_000, cfg.Ingest.MaxSeriesBytes)
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SerialPlotter.config")

	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Ingest.ParseMode = "strict"
	cfg.Ingest.AutoVariableUpdate = false
	cfg.Simulator.HeaderEvery = 10
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.Server.Port)
	assert.Equal(t, "strict", loaded.Ingest.ParseMode)
	assert.False(t, loaded.Ingest.AutoVariableUpdate)
	assert.Equal(t, 10, loaded.Simulator.HeaderEvery)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SerialPlotter.config")
	content := `<SerialPlotter><Server><Port>9000</Port></Server></SerialPlotter>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Simulator.IntervalMs)
	assert.Equal(t, "heuristic", cfg.Ingest.ParseMode)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("malformed xml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.config")
		require.NoError(t, os.WriteFile(path, []byte("<SerialPlotter><Server>"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("invalid parse mode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mode.config")
		content := `<SerialPlotter><Ingest><ParseMode>regex</ParseMode></Ingest></SerialPlotter>`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "parse mode")
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PORT", "7777")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("MAX_SERIES_BYTES", "4096")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "SerialPlotter.config"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, 4096, cfg.Ingest.MaxSeriesBytes)
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50*time.Millisecond, cfg.SnapshotInterval())
	assert.Equal(t, time.Hour, cfg.SessionTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
	assert.Equal(t, "0.0.0.0:8090", cfg.GetServerAddr())

	cfg.Ingest.SnapshotIntervalMs = 0
	assert.Equal(t, 50*time.Millisecond, cfg.SnapshotInterval())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)
	cfg.Storage.EnableArchive = true
	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.ExportsDirectory)
	assert.DirExists(t, cfg.Storage.ArchiveDirectory)
}
