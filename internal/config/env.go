package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are environment variables that take precedence over the
// config file. Empty values leave the file value untouched.
type EnvOverrides struct {
	DataDir     string `env:"ENTON_DATA_DIR"`
	LogLevel    string `env:"ENTON_LOG_LEVEL"`
	Brain       string `env:"ENTON_BRAIN_PROVIDER"`
	STT         string `env:"ENTON_STT_PROVIDER"`
	TTS         string `env:"ENTON_TTS_PROVIDER"`
	OllamaHost  string `env:"OLLAMA_HOST"`
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	RouterKey   string `env:"OPENROUTER_API_KEY"`
	GeminiKey   string `env:"GEMINI_API_KEY"`
	GoogleKey   string `env:"GOOGLE_API_KEY"`
	GitHubToken string `env:"GITHUB_TOKEN"`
}

func (c *Config) applyEnvOverrides() error {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	c.ApplyOverrides(o)
	return nil
}

// ApplyOverrides merges non-empty override values into c.
func (c *Config) ApplyOverrides(o EnvOverrides) {
	if o.DataDir != "" {
		c.Paths.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Brain != "" {
		c.Brain.Primary = o.Brain
	}
	if o.STT != "" {
		c.Ears.Primary = o.STT
	}
	if o.TTS != "" {
		c.Voice.Primary = o.TTS
	}

	if c.Providers.Endpoints == nil {
		c.Providers.Endpoints = make(map[string]EndpointConfig)
	}
	if o.OllamaHost != "" {
		ep := c.Providers.Endpoints["local"]
		ep.BaseURL = o.OllamaHost + "/v1"
		c.Providers.Endpoints["local"] = ep
	}
	if o.OpenAIKey != "" {
		ep := c.Providers.Endpoints["openai"]
		ep.APIKey = o.OpenAIKey
		c.Providers.Endpoints["openai"] = ep
	}
	if o.RouterKey != "" {
		ep := c.Providers.Endpoints["openrouter"]
		ep.APIKey = o.RouterKey
		c.Providers.Endpoints["openrouter"] = ep
	}

	// GEMINI_API_KEY wins over GOOGLE_API_KEY
	if o.GoogleKey != "" {
		c.Providers.Gemini.APIKey = o.GoogleKey
	}
	if o.GeminiKey != "" {
		c.Providers.Gemini.APIKey = o.GeminiKey
	}
	if o.GitHubToken != "" {
		c.Tools.GitHubToken = o.GitHubToken
	}
}
