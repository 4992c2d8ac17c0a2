package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDeviceDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ECOSPECTRE_DATA_DIR", dir)

	cfg, err := LoadDevice(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Queue.Backend)
	assert.Equal(t, filepath.Join(dir, "scans.json"), cfg.Queue.Path)
	assert.Equal(t, 15, cfg.API.TimeoutSeconds)
	assert.Equal(t, 320, cfg.Thumbnail.MaxDimension)
	assert.Equal(t, "gemini", cfg.Vision.Provider)
}

func TestLoadDeviceFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "`+filepath.ToSlash(dir)+`"

[queue]
backend = "sqlite"

[api]
base_url = "http://file.example/api"
timeout_seconds = 5

[vision]
provider = "ollama"
`), 0o644))
	t.Setenv("ECOSPECTRE_API_URL", "http://env.example/api")

	cfg, err := LoadDevice(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Queue.Backend)
	assert.Equal(t, "scans.db", filepath.Base(cfg.Queue.Path))
	assert.Equal(t, "http://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.TimeoutSeconds)
	assert.Equal(t, "ollama", cfg.Vision.Provider)
}

func TestLoadDeviceRejectsBrokenToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[queue\n"), 0o644))

	_, err := LoadDevice(path)
	assert.Error(t, err)
}

func TestSaveDeviceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ECOSPECTRE_DATA_DIR", dir)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := LoadDevice(path)
	require.NoError(t, err)
	cfg.UserID = "device-owner"
	require.NoError(t, SaveDevice(path, cfg))

	again, err := LoadDevice(path)
	require.NoError(t, err)
	assert.Equal(t, "device-owner", again.UserID)
}
