package config

import "time"

// WorkspaceConfig configures the global workspace and perception module.
type WorkspaceConfig struct {
	HistorySize       int     `yaml:"history_size"`
	TickInterval      string  `yaml:"tick_interval"`
	SaliencyScale     float64 `yaml:"saliency_scale"`     // |surprise-0.5| multiplier
	SaliencyThreshold float64 `yaml:"saliency_threshold"` // perception stays silent at or below
}

// GetTickInterval returns the workspace tick period.
func (w WorkspaceConfig) GetTickInterval() time.Duration {
	return parseDuration(w.TickInterval, time.Second)
}

// PredictionConfig configures the world model.
type PredictionConfig struct {
	SaveInterval      string  `yaml:"save_interval"`
	ColdStartSamples  int     `yaml:"cold_start_samples"`
	ColdStartSurprise float64 `yaml:"cold_start_surprise"` // returned while uncertainty is high
	UncertaintyCutoff float64 `yaml:"uncertainty_cutoff"`
	PresenceWeight    float64 `yaml:"presence_weight"`
	ActivityWeight    float64 `yaml:"activity_weight"`
}

// GetSaveInterval returns how often the world model is persisted.
func (p PredictionConfig) GetSaveInterval() time.Duration {
	return parseDuration(p.SaveInterval, 5*time.Minute)
}

// MetacognitionConfig configures strategy learning and boredom.
type MetacognitionConfig struct {
	BoredomGrowth    float64  `yaml:"boredom_growth"` // per second while surprise is low
	BoredomThreshold float64  `yaml:"boredom_threshold"`
	BoredomRelief    float64  `yaml:"boredom_relief"`
	LowSurprise      float64  `yaml:"low_surprise"`
	HighSurprise     float64  `yaml:"high_surprise"`
	EMAAlpha         float64  `yaml:"ema_alpha"`
	MaxTraces        int      `yaml:"max_traces"`
	DefaultInterests []string `yaml:"default_interests"` // empty uses the built-in list
}

// AwarenessConfig configures the awareness state machine.
type AwarenessConfig struct {
	Initial  string `yaml:"initial"`
	Debounce string `yaml:"debounce"`
}

// GetDebounce returns the minimum time between normal transitions.
func (a AwarenessConfig) GetDebounce() time.Duration {
	return parseDuration(a.Debounce, 2*time.Second)
}

// ErrorsConfig configures error loop-back.
type ErrorsConfig struct {
	MaxTotalRetries   int    `yaml:"max_total_retries"`
	ErrorTTL          string `yaml:"error_ttl"` // context entry lifetime
	DegradedThreshold int    `yaml:"degraded_threshold"`
	HistorySize       int    `yaml:"history_size"`
}

// GetErrorTTL returns the lifetime of error context entries.
func (e ErrorsConfig) GetErrorTTL() time.Duration {
	return parseDuration(e.ErrorTTL, 2*time.Minute)
}

// ContextConfig configures the context engine.
type ContextConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}
