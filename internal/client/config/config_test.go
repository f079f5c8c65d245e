package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}

func TestValidateResolvesDataDir(t *testing.T) {
	cfg := &Config{DataDir: "relative/dir"}
	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestValidateRejectsBadScheme(t *testing.T) {
	for _, url := range []string{"ftp://example.com", "example.com", "unix:///tmp/sock"} {
		cfg := &Config{ServerURL: url}
		assert.Error(t, cfg.Validate(), "url %q must be rejected", url)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := &Config{
		DataDir:    "/data/drivebox",
		ServerURL:  "https://files.example.com",
		UsePolling: true,
	}
	require.NoError(t, cfg.Save(path))
	assert.Equal(t, path, cfg.Path, "Save records where the config landed")

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
	assert.True(t, loaded.UsePolling)
	assert.Equal(t, path, loaded.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
