package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 0.0.0.0
port: 8080
llm:
  provider: anthropic
  model: claude-sonnet
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "balanced", cfg.RateLimit.Profile)
	require.Equal(t, 100, cfg.RateLimit.MemoryWindow)
	require.InDelta(t, 0.1, cfg.RateLimit.ExplorationP, 1e-9)
	require.InDelta(t, 0.3, cfg.RateLimit.LearningRate, 1e-9)
	require.InDelta(t, 0.95, cfg.RateLimit.DecayPerDay, 1e-9)
	require.Equal(t, 5, cfg.Orchestrator.MaxConcurrentEngines)
	require.Equal(t, "adaptive", cfg.Orchestrator.DefaultStrategy)
	require.Equal(t, "research-engine", cfg.OTel.ServiceName)
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  model: claude-sonnet
  api_key: from-file
`), 0o644))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
