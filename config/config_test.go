package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpcore/engine/mcp"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)
	assert.False(t, opts.StrictLifecycle)
	assert.Nil(t, opts.CapabilitiesDeclared)
}

func TestLoadParsesYAMLAndDefaultsLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
strict_lifecycle: true
transport: stdio
capabilities:
  tools:
    list_changed: true
  logging: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.True(t, opts.StrictLifecycle)
	assert.Equal(t, mcp.LogInfo, opts.MinLogLevel)
	require.NotNil(t, opts.CapabilitiesDeclared)
	require.NotNil(t, opts.CapabilitiesDeclared.Tools)
	assert.True(t, opts.CapabilitiesDeclared.Tools.ListChanged)
	assert.NotNil(t, opts.CapabilitiesDeclared.Logging)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_log_level: verbose\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresSSEAddrWhenTransportIsSSE(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: sse\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
