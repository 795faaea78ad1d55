package config

import "time"

// SkillsConfig configures runtime-loaded skills.
type SkillsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Watch    bool   `yaml:"watch"`    // hot reload on file changes
	Debounce string `yaml:"debounce"` // coalesce rapid writes

	// AllowNetwork lets skills import net/http.
	AllowNetwork bool `yaml:"allow_network"`
}

// GetDebounce returns the watcher debounce window.
func (s SkillsConfig) GetDebounce() time.Duration {
	return parseDuration(s.Debounce, 500*time.Millisecond)
}

// ToolsConfig configures built-in tools.
type ToolsConfig struct {
	ShellEnabled    bool   `yaml:"shell_enabled"`
	ShellTimeout    string `yaml:"shell_timeout"`
	WebFetchTimeout string `yaml:"web_fetch_timeout"`
	GitHubToken     string `yaml:"github_token"`
}

// GetShellTimeout returns the run_command timeout.
func (t ToolsConfig) GetShellTimeout() time.Duration {
	return parseDuration(t.ShellTimeout, time.Minute)
}

// GetWebFetchTimeout returns the HTTP timeout for web tools.
func (t ToolsConfig) GetWebFetchTimeout() time.Duration {
	return parseDuration(t.WebFetchTimeout, 30*time.Second)
}

// RuntimeConfig configures the background loops.
type RuntimeConfig struct {
	MoodInterval      string `yaml:"mood_interval"`      // mood decay and desire ticks
	LifecycleInterval string `yaml:"lifecycle_interval"` // periodic state.json save
	IdleTimeout       string `yaml:"idle_timeout"`       // person considered gone after this
}

// GetMoodInterval returns the mood/desire tick period.
func (r RuntimeConfig) GetMoodInterval() time.Duration {
	return parseDuration(r.MoodInterval, 5*time.Second)
}

// GetLifecycleInterval returns the lifecycle save period.
func (r RuntimeConfig) GetLifecycleInterval() time.Duration {
	return parseDuration(r.LifecycleInterval, 5*time.Minute)
}

// GetIdleTimeout returns how long after the last sighting a person counts as
// gone.
func (r RuntimeConfig) GetIdleTimeout() time.Duration {
	return parseDuration(r.IdleTimeout, time.Minute)
}
