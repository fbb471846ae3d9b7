package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingConfigFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, Settings{Registry: "ghcr.io/daemonless"})
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Type)
	assert.Equal(t, filepath.Base(dir), cfg.Image)
	assert.Equal(t, "ghcr.io/daemonless", cfg.Registry)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	data := `
type: base
build:
  auto_version: true
  architectures: [amd64, aarch64]
  variants:
    - tag: latest
      containerfile: Containerfile
      default: true
cit:
  mode: health
  port: 7878
  health: /ping
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte(data), 0o644))

	cfg, err := Load(dir, Settings{Registry: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "base", cfg.Type)
	assert.True(t, cfg.Build.AutoVersion)
	assert.Equal(t, []string{"amd64", "aarch64"}, cfg.Architectures())
	require.NotNil(t, cfg.Test)
	assert.Equal(t, "health", cfg.Test.Mode)
	assert.Equal(t, 7878, cfg.Test.Port)
	assert.Equal(t, "/ping", cfg.Test.Health)
}

func TestLoadDaemonlessDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".daemonless"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ".daemonless", "config.yaml"),
		[]byte("type: app\n"), 0o644))

	cfg, err := Load(dir, Settings{Registry: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Type)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte("build: ["), 0o644))

	_, err := Load(dir, Settings{})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRegistryFallsBackToLocalhost(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, Settings{})
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Registry)
}

func TestFullImage(t *testing.T) {
	cfg := &Config{Image: "radarr", Registry: "ghcr.io/daemonless"}
	assert.Equal(t, "ghcr.io/daemonless/radarr", cfg.FullImage())
}
