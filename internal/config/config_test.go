package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "enton", cfg.Name)
	assert.Equal(t, 100, cfg.Workspace.HistorySize)
	assert.Equal(t, 20, cfg.Brain.MemorySize)
	assert.Equal(t, 3, cfg.Errors.MaxTotalRetries)
	assert.Equal(t, "SENTINEL", cfg.Awareness.Initial)
	assert.Equal(t, 2*time.Second, cfg.Awareness.GetDebounce())
	assert.Equal(t, 5*time.Minute, cfg.Prediction.GetSaveInterval())
	assert.Equal(t, 2*time.Minute, cfg.Errors.GetErrorTTL())
	assert.True(t, cfg.Providers.HasLLM("local"))
	assert.True(t, cfg.Providers.HasLLM("gemini"))
	assert.False(t, cfg.Providers.HasLLM("anthropic"))
	require.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	p := PathsConfig{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "world_model.json"), p.WorldModelPath())
	assert.Equal(t, filepath.Join("/data", "state.json"), p.StatePath())
	assert.Equal(t, filepath.Join("/data", "memory.db"), p.MemoryDBPath())
	assert.Equal(t, filepath.Join("/data", "skills"), p.SkillsDir())
	assert.Equal(t, filepath.Join("/data", "checkpoints"), p.CheckpointDir())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("ENTON_DATA_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Workspace, cfg.Workspace)
}

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Setenv("ENTON_BRAIN_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Brain.Primary = "gemini"
	cfg.Workspace.HistorySize = 42
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", loaded.Brain.Primary)
	assert.Equal(t, 42, loaded.Workspace.HistorySize)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brain:\n  max_turns: 9\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Brain.MaxTurns)
	assert.Equal(t, 100, cfg.Workspace.HistorySize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brain: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }},
		{"zero history", func(c *Config) { c.Workspace.HistorySize = 0 }},
		{"zero max turns", func(c *Config) { c.Brain.MaxTurns = 0 }},
		{"zero retries", func(c *Config) { c.Errors.MaxTotalRetries = 0 }},
		{"boredom threshold above one", func(c *Config) { c.Metacognition.BoredomThreshold = 1.5 }},
		{"bad awareness level", func(c *Config) { c.Awareness.Initial = "ASLEEP" }},
		{"unknown fallback provider", func(c *Config) { c.Brain.Fallback = []string{"local", "nope"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, time.Second, WorkspaceConfig{TickInterval: "garbage"}.GetTickInterval())
	assert.Equal(t, 500*time.Millisecond, SkillsConfig{}.GetDebounce())
	assert.Equal(t, time.Minute, ToolsConfig{ShellTimeout: "-3s"}.GetShellTimeout())
	assert.Equal(t, 45*time.Second, EndpointConfig{Timeout: "45s"}.GetTimeout())
	assert.Equal(t, time.Minute, RuntimeConfig{}.GetIdleTimeout())
	assert.Equal(t, 90*time.Second, RuntimeConfig{IdleTimeout: "90s"}.GetIdleTimeout())
}

func TestLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Enabled: true, Level: "debug", Format: "json", Categories: map[string]bool{"tools": false}}
	assert.False(t, lc.IsCategoryEnabled("tools"))
	assert.True(t, lc.IsCategoryEnabled("brain"))

	o := lc.Options()
	assert.True(t, o.JSONFormat)
	assert.Equal(t, "debug", o.Level)

	lc.Enabled = false
	assert.False(t, lc.IsCategoryEnabled("brain"))
}
