package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: http
  base_url: http://localhost:9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abvctl", cfg.Service.Name)
	assert.Equal(t, "INFO", cfg.Service.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "http://localhost:9999", cfg.Backend.BaseURL)
}

func TestLoadNativeMode(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: native
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeNative, cfg.Backend.Mode)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: carrier-pigeon
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.mode")
}

func TestLoadRejectsHTTPWithoutBaseURL(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: http
  base_url: ""
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_ABV_URL", "http://expanded:1234")
	path := writeConfig(t, `
backend:
  mode: http
  base_url: ${TEST_ABV_URL}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://expanded:1234", cfg.Backend.BaseURL)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("ABV_BASE_URL", "http://override:8080")
	t.Setenv("ABV_LOG_LEVEL", "DEBUG")
	path := writeConfig(t, `
backend:
  mode: http
  base_url: http://from-file:1111
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override:8080", cfg.Backend.BaseURL)
	assert.Equal(t, "DEBUG", cfg.Service.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestChecksumRoundTrip(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: http
  base_url: http://localhost:9999
`)

	_, err := WriteChecksum(path)
	require.NoError(t, err)

	_, err = Load(path)
	assert.NoError(t, err, "matching sidecar passes verification")
}

func TestChecksumMismatchRejected(t *testing.T) {
	path := writeConfig(t, `
backend:
  mode: http
  base_url: http://localhost:9999
`)

	_, err := WriteChecksum(path)
	require.NoError(t, err)

	// Tamper after hashing.
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  mode: native\n"), 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}
