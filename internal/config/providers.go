package config

import "time"

// ProvidersConfig configures the AI backends Brain, Ears and Voice can use.
type ProvidersConfig struct {
	// Endpoints are OpenAI-compatible services keyed by provider id
	// (local Ollama, OpenAI, OpenRouter, NVIDIA NIM, ...).
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`

	// Gemini uses the Google GenAI SDK.
	Gemini GeminiConfig `yaml:"gemini"`
}

// EndpointConfig describes one OpenAI-compatible service.
type EndpointConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	RequiresKey bool   `yaml:"requires_key"` // omit the provider when no key is set

	Model       string `yaml:"model"`        // chat model
	VisionModel string `yaml:"vision_model"` // falls back to Model
	STTModel    string `yaml:"stt_model"`    // empty disables transcription
	TTSModel    string `yaml:"tts_model"`    // empty disables synthesis
	TTSVoice    string `yaml:"tts_voice"`

	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GetTimeout returns the endpoint timeout as a duration.
func (e EndpointConfig) GetTimeout() time.Duration {
	return parseDuration(e.Timeout, 2*time.Minute)
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
}

// DefaultProvidersConfig returns the built-in provider table.
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Endpoints: map[string]EndpointConfig{
			"local": {
				BaseURL:           "http://localhost:11434/v1",
				Model:             "qwen2.5:14b",
				VisionModel:       "qwen2.5vl:7b",
				STTModel:          "whisper",
				TTSModel:          "kokoro",
				TTSVoice:          "pf_dora",
				Timeout:           "180s",
				RequestsPerSecond: 10,
			},
			"openai": {
				BaseURL:           "https://api.openai.com/v1",
				RequiresKey:       true,
				Model:             "gpt-4o-mini",
				VisionModel:       "gpt-4o-mini",
				STTModel:          "whisper-1",
				TTSModel:          "tts-1",
				TTSVoice:          "alloy",
				Timeout:           "120s",
				RequestsPerSecond: 5,
			},
			"openrouter": {
				BaseURL:           "https://openrouter.ai/api/v1",
				RequiresKey:       true,
				Model:             "meta-llama/llama-3.3-70b-instruct",
				Timeout:           "120s",
				RequestsPerSecond: 2,
			},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			VisionModel: "gemini-2.5-flash",
		},
	}
}

// HasLLM reports whether id names a configured LLM provider.
func (p ProvidersConfig) HasLLM(id string) bool {
	if id == "gemini" {
		return true
	}
	_, ok := p.Endpoints[id]
	return ok
}

// BrainConfig configures the Brain.
type BrainConfig struct {
	Primary      string   `yaml:"primary"`
	Fallback     []string `yaml:"fallback"`
	MemorySize   int      `yaml:"memory_size"` // bounded history entries
	MaxTurns     int      `yaml:"max_turns"`   // tool-calling loop bound
	SystemPrompt string   `yaml:"system_prompt"`
	Timeout      string   `yaml:"timeout"`
}

// GetTimeout returns the per-call brain timeout.
func (b BrainConfig) GetTimeout() time.Duration {
	return parseDuration(b.Timeout, 2*time.Minute)
}

// EarsConfig configures speech-to-text.
type EarsConfig struct {
	Primary          string   `yaml:"primary"`
	Fallback         []string `yaml:"fallback"`
	SampleRate       int      `yaml:"sample_rate"`
	SilenceThreshold float64  `yaml:"silence_threshold"`
}

// VoiceConfig configures text-to-speech and playback.
type VoiceConfig struct {
	Primary       string   `yaml:"primary"`
	Fallback      []string `yaml:"fallback"`
	QueueSize     int      `yaml:"queue_size"`
	PlayerCommand []string `yaml:"player_command"` // receives WAV on stdin
}
