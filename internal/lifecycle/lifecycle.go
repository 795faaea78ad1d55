// Package lifecycle persists enton's living state between boots: boot count,
// accumulated uptime, the last shutdown time and snapshots of mood, desires,
// awareness and metacognition.
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"enton/internal/awareness"
	"enton/internal/desires"
	"enton/internal/logging"
	"enton/internal/metacognition"
	"enton/internal/persist"
	"enton/internal/selfmodel"
)

// MoodState is the persisted mood.
type MoodState struct {
	Engagement float64 `json:"engagement"`
	Social     float64 `json:"social"`
}

// State is the content of state.json.
type State struct {
	BootCount          int                      `json:"boot_count"`
	TotalUptimeSeconds float64                  `json:"total_uptime_seconds"`
	LastShutdown       float64                  `json:"last_shutdown"` // unix seconds, 0 if never
	Mood               *MoodState               `json:"mood,omitempty"`
	Desires            map[string]desires.State `json:"desires,omitempty"`
	Awareness          *awareness.Snapshot      `json:"awareness,omitempty"`
	Metacognition      *metacognition.Snapshot  `json:"metacognition,omitempty"`
}

// Components are the parts whose state survives restarts. Nil fields are
// skipped on both restore and save.
type Components struct {
	Self          *selfmodel.SelfModel
	Desires       *desires.Engine
	Awareness     *awareness.StateMachine
	Metacognition *metacognition.Engine
}

// Lifecycle owns state.json.
type Lifecycle struct {
	path string
	now  func() time.Time

	mu         sync.Mutex
	state      State
	bootTime   time.Time
	baseUptime float64 // total uptime before this session
	asleep     time.Duration
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(l *Lifecycle) { l.now = now } }

// Load reads the state file at path. A missing or corrupt file yields an
// empty state.
func Load(path string, opts ...Option) *Lifecycle {
	l := &Lifecycle{path: path, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	l.bootTime = l.now()

	if err := persist.ReadJSON(path, &l.state); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.LifecycleWarn("failed to load lifecycle state, starting fresh: %v", err)
		}
		l.state = State{}
	} else {
		logging.Lifecycle("lifecycle state loaded (boot #%d)", l.state.BootCount)
	}
	l.baseUptime = l.state.TotalUptimeSeconds
	if l.state.LastShutdown > 0 {
		l.asleep = max(0, l.bootTime.Sub(unixSeconds(l.state.LastShutdown)))
	}
	return l
}

// Path returns the state file location.
func (l *Lifecycle) Path() string { return l.path }

// State returns a copy of the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// BootCount returns how many times enton has booted, this boot included
// once OnBoot has run.
func (l *Lifecycle) BootCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.BootCount
}

// TimeAsleep is the gap between the previous shutdown and this boot.
func (l *Lifecycle) TimeAsleep() time.Duration { return l.asleep }

// OnBoot increments the boot count, restores persisted state into c and
// returns a wake-up line, empty when the sleep was too short to mention.
func (l *Lifecycle) OnBoot(c Components) string {
	l.mu.Lock()
	l.state.BootCount++
	st := l.state
	l.mu.Unlock()
	asleep := l.asleep

	if c.Self != nil && st.Mood != nil {
		c.Self.RestoreMood(st.Mood.Engagement, st.Mood.Social)
	}
	if c.Desires != nil && len(st.Desires) > 0 {
		c.Desires.Restore(st.Desires)
	}
	if c.Awareness != nil && st.Awareness != nil {
		c.Awareness.Restore(*st.Awareness)
	}
	if c.Metacognition != nil && st.Metacognition != nil {
		c.Metacognition.Restore(*st.Metacognition)
	}
	logging.Lifecycle("boot #%d, asleep %s", st.BootCount, HumanDuration(asleep))

	switch {
	case asleep > 24*time.Hour:
		return fmt.Sprintf("Wow, I slept %s! Did you miss me?", HumanDuration(asleep))
	case asleep > time.Hour:
		return fmt.Sprintf("I'm back! I was offline for %s.", HumanDuration(asleep))
	case asleep > time.Minute:
		return "That was quick, I'm back!"
	default:
		return ""
	}
}

// OnShutdown snapshots c and writes state.json.
func (l *Lifecycle) OnShutdown(c Components) error {
	l.mu.Lock()
	now := l.now()
	l.state.LastShutdown = float64(now.UnixNano()) / 1e9
	l.state.TotalUptimeSeconds = l.baseUptime + now.Sub(l.bootTime).Seconds()

	if c.Self != nil {
		m := c.Self.Mood()
		l.state.Mood = &MoodState{Engagement: m.Engagement, Social: m.Social}
	}
	if c.Desires != nil {
		l.state.Desires = c.Desires.Snapshot()
	}
	if c.Awareness != nil {
		s := c.Awareness.Snapshot()
		l.state.Awareness = &s
	}
	if c.Metacognition != nil {
		s := c.Metacognition.Snapshot()
		l.state.Metacognition = &s
	}
	st := l.state
	l.mu.Unlock()

	if err := persist.WriteJSON(l.path, st); err != nil {
		logging.LifecycleError("failed to save lifecycle state: %v", err)
		return err
	}
	logging.Lifecycle("lifecycle saved: boot #%d, total uptime %.1fh", st.BootCount, st.TotalUptimeSeconds/3600)
	return nil
}

// SavePeriodic writes the same state as OnShutdown so a crash loses at most
// one save interval. Uptime is recomputed from the boot baseline, never
// accumulated twice.
func (l *Lifecycle) SavePeriodic(c Components) error {
	return l.OnShutdown(c)
}

// Summary renders boot count, total uptime and the last sleep.
func (l *Lifecycle) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("Boot #%d, total uptime %.1fh, slept %s",
		l.state.BootCount, l.state.TotalUptimeSeconds/3600, HumanDuration(l.asleep))
}

// HumanDuration renders d compactly: 42s, 5min, 3h12min, 2d4h.
func HumanDuration(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	if s < 0 {
		s = 0
	}
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dmin", s/60)
	}
	h, rem := s/3600, s%3600
	if h < 24 {
		return fmt.Sprintf("%dh%dmin", h, rem/60)
	}
	return fmt.Sprintf("%dd%dh", h/24, h%24)
}

func unixSeconds(f float64) time.Time {
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9))
}
