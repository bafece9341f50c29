package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	appconfig "github.com/openkraft/ecoscan/internal/adapters/outbound/config"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ecoscan.yaml"), []byte(content), 0o644))
}

func TestYAMLLoader_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := appconfig.New().Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestYAMLLoader_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
modules: [sales, ai_sam]
stale_after: 30m
similarity:
  flag: 0.6
penalties:
  hardcoded_path: 20
integrations:
  stripe:
    api: ['api\.stripe\.com']
log:
  level: debug
`)
	cfg, err := appconfig.New().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"sales", "ai_sam"}, cfg.Modules)
	assert.Equal(t, 30*time.Minute, cfg.StaleAfter)
	assert.InDelta(t, 0.6, cfg.Similarity.Flag, 0.001)
	assert.InDelta(t, 0.85, cfg.Similarity.Escalate, 0.001, "unset values keep their default")
	assert.InDelta(t, 20, cfg.Penalties.HardcodedPath, 0.001)
	assert.InDelta(t, 10, cfg.Penalties.RelativeEscape, 0.001)
	assert.Contains(t, cfg.Integrations, "stripe")
	assert.Contains(t, cfg.Integrations, "n8n", "built-in targets survive")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ".ecoscan", cfg.StateDir)
}

func TestYAMLLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{{{invalid yaml`)

	_, err := appconfig.New().Load(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing .ecoscan.yaml")
}

func TestYAMLLoader_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"threshold above one", "similarity:\n  flag: 1.5\n", "similarity.flag"},
		{"flag above escalate", "similarity:\n  flag: 0.9\n  escalate: 0.8\n", "exceeds"},
		{"negative penalty", "penalties:\n  warning: -1\n", "penalties.warning"},
		{"unknown category", "integrations:\n  x:\n    gossip: ['a']\n", "unknown category"},
		{"bad regex", "integrations:\n  x:\n    api: ['(']\n", "integrations.x.api"},
		{"nested module", "modules: [a/b]\n", "top-level directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := appconfig.New().Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
