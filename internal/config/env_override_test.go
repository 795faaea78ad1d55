package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_Providers(t *testing.T) {
	t.Run("OPENAI_API_KEY fills the openai endpoint", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "oa-key")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "oa-key", cfg.Providers.Endpoints["openai"].APIKey)
		assert.Equal(t, "gpt-4o-mini", cfg.Providers.Endpoints["openai"].Model)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "google")
		t.Setenv("GEMINI_API_KEY", "gemini")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "gemini", cfg.Providers.Gemini.APIKey)
	})

	t.Run("OLLAMA_HOST rewrites the local base url", func(t *testing.T) {
		t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "http://gpu-box:11434/v1", cfg.Providers.Endpoints["local"].BaseURL)
	})

	t.Run("nil endpoint map is created", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyOverrides(EnvOverrides{RouterKey: "or"})
		assert.Equal(t, "or", cfg.Providers.Endpoints["openrouter"].APIKey)
	})
}

func TestEnvOverrides_Components(t *testing.T) {
	t.Setenv("ENTON_BRAIN_PROVIDER", "gemini")
	t.Setenv("ENTON_STT_PROVIDER", "local")
	t.Setenv("ENTON_TTS_PROVIDER", "local")
	t.Setenv("ENTON_LOG_LEVEL", "debug")
	t.Setenv("ENTON_DATA_DIR", "/tmp/enton")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.Equal(t, "gemini", cfg.Brain.Primary)
	assert.Equal(t, "local", cfg.Ears.Primary)
	assert.Equal(t, "local", cfg.Voice.Primary)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/enton", cfg.Paths.DataDir)
}

func TestEnvOverrides_EmptyLeavesFileValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Brain.Primary = "openrouter"
	cfg.ApplyOverrides(EnvOverrides{})
	assert.Equal(t, "openrouter", cfg.Brain.Primary)
}
