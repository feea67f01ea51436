package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2, cfg.Agent.MaxRetries)
	assert.True(t, cfg.Redaction.Enabled)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
agent:
  max_retries: 5
redaction:
  enabled: true
  rules:
    - pattern: '\d{3}-\d{4}'
      label: PHONE_#
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Agent.MaxRetries)
	require.Len(t, cfg.Redaction.Rules, 1)
	assert.Equal(t, "PHONE_#", cfg.Redaction.Rules[0].Label)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Workspace.SessionDB, cfg.Workspace.SessionDB)
}

func TestLoadRejectsNegativeRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_retries: -1\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "max_retries")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t:::"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
