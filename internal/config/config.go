package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all enton configuration.
type Config struct {
	Name string `yaml:"name"`

	Paths     PathsConfig     `yaml:"paths"`
	Providers ProvidersConfig `yaml:"providers"`

	// Provider-fallback components
	Brain BrainConfig `yaml:"brain"`
	Ears  EarsConfig  `yaml:"ears"`
	Voice VoiceConfig `yaml:"voice"`

	// Cognitive core
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Prediction    PredictionConfig    `yaml:"prediction"`
	Metacognition MetacognitionConfig `yaml:"metacognition"`
	Awareness     AwarenessConfig     `yaml:"awareness"`
	Errors        ErrorsConfig        `yaml:"errors"`
	Context       ContextConfig       `yaml:"context"`

	// Extensibility
	Skills SkillsConfig `yaml:"skills"`
	Tools  ToolsConfig  `yaml:"tools"`

	Runtime RuntimeConfig `yaml:"runtime"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates persisted state.
type PathsConfig struct {
	DataDir string `yaml:"data_dir"` // default ~/.enton
}

// WorldModelPath is the JSON file holding learned presence statistics.
func (p PathsConfig) WorldModelPath() string { return filepath.Join(p.DataDir, "world_model.json") }

// StatePath is the lifecycle state file.
func (p PathsConfig) StatePath() string { return filepath.Join(p.DataDir, "state.json") }

// MemoryDBPath is the SQLite episodic memory database.
func (p PathsConfig) MemoryDBPath() string { return filepath.Join(p.DataDir, "memory.db") }

// SkillsDir holds Go-source skills loaded at runtime.
func (p PathsConfig) SkillsDir() string { return filepath.Join(p.DataDir, "skills") }

// LogsDir holds categorized log files.
func (p PathsConfig) LogsDir() string { return filepath.Join(p.DataDir, "logs") }

// CheckpointDir holds context engine checkpoints.
func (p PathsConfig) CheckpointDir() string { return filepath.Join(p.DataDir, "checkpoints") }

// DefaultDataDir returns ~/.enton, or .enton when the home dir is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enton"
	}
	return filepath.Join(home, ".enton")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:      "enton",
		Paths:     PathsConfig{DataDir: DefaultDataDir()},
		Providers: DefaultProvidersConfig(),

		Brain: BrainConfig{
			Primary:    "local",
			Fallback:   []string{"local", "gemini", "openai", "openrouter"},
			MemorySize: 20,
			MaxTurns:   5,
			Timeout:    "120s",
		},
		Ears: EarsConfig{
			Primary:          "openai",
			Fallback:         []string{"openai", "local"},
			SampleRate:       16000,
			SilenceThreshold: 0.01,
		},
		Voice: VoiceConfig{
			Primary:       "openai",
			Fallback:      []string{"openai", "local"},
			QueueSize:     32,
			PlayerCommand: []string{"aplay", "-q", "-"},
		},

		Workspace: WorkspaceConfig{
			HistorySize:       100,
			TickInterval:      "1s",
			SaliencyScale:     1.8,
			SaliencyThreshold: 0.2,
		},
		Prediction: PredictionConfig{
			SaveInterval:      "5m",
			ColdStartSamples:  5,
			ColdStartSurprise: 0.1,
			UncertaintyCutoff: 0.8,
			PresenceWeight:    0.7,
			ActivityWeight:    0.3,
		},
		Metacognition: MetacognitionConfig{
			BoredomGrowth:    0.01,
			BoredomThreshold: 0.8,
			BoredomRelief:    0.5,
			LowSurprise:      0.2,
			HighSurprise:     0.5,
			EMAAlpha:         0.15,
			MaxTraces:        200,
		},
		Awareness: AwarenessConfig{
			Initial:  "SENTINEL",
			Debounce: "2s",
		},
		Errors: ErrorsConfig{
			MaxTotalRetries:   3,
			ErrorTTL:          "120s",
			DegradedThreshold: 5,
			HistorySize:       50,
		},
		Context: ContextConfig{MaxTokens: 8000},

		Skills: SkillsConfig{
			Enabled:  true,
			Watch:    true,
			Debounce: "500ms",
		},
		Tools: ToolsConfig{
			ShellEnabled:    true,
			ShellTimeout:    "60s",
			WebFetchTimeout: "30s",
		},

		Runtime: RuntimeConfig{
			MoodInterval:      "5s",
			LifecycleInterval: "5m",
			IdleTimeout:       "60s",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.applyEnvOverrides(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns <data dir>/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Validate checks the configuration for values the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if c.Workspace.HistorySize <= 0 {
		return fmt.Errorf("workspace.history_size must be positive, got %d", c.Workspace.HistorySize)
	}
	if c.Brain.MaxTurns <= 0 {
		return fmt.Errorf("brain.max_turns must be positive, got %d", c.Brain.MaxTurns)
	}
	if c.Brain.MemorySize < 0 {
		return fmt.Errorf("brain.memory_size must not be negative")
	}
	if c.Errors.MaxTotalRetries <= 0 {
		return fmt.Errorf("errors.max_total_retries must be positive, got %d", c.Errors.MaxTotalRetries)
	}
	if t := c.Metacognition.BoredomThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("metacognition.boredom_threshold must be in (0,1], got %v", t)
	}
	if !isValidLevel(c.Awareness.Initial) {
		return fmt.Errorf("invalid awareness.initial: %s (valid: %v)", c.Awareness.Initial, ValidAwarenessLevels)
	}
	for _, id := range c.Brain.Fallback {
		if !c.Providers.HasLLM(id) {
			return fmt.Errorf("brain.fallback references unknown provider %q", id)
		}
	}
	return nil
}

// ValidAwarenessLevels lists awareness level names accepted in config.
var ValidAwarenessLevels = []string{"SENTINEL", "ATTENTIVE", "FOCUSED", "ALERT", "CREATIVE"}

func isValidLevel(name string) bool {
	for _, l := range ValidAwarenessLevels {
		if l == name {
			return true
		}
	}
	return false
}

// parseDuration parses s, returning fallback when s is empty or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
