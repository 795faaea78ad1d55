// Package awareness implements enton's attention-level state machine.
//
// Five levels gate which senses and behaviours run:
//
//	SENTINEL -> ATTENTIVE -> FOCUSED
//	    |  ^         ^
//	    v  |         |
//	  CREATIVE     ALERT (reachable from anywhere)
//
// Transitions are driven by mood and dwell time and are debounced, except
// for alerts and user interaction which always go through.
package awareness

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"enton/internal/config"
	"enton/internal/events"
	"enton/internal/logging"
	"enton/internal/selfmodel"
)

// Level is an awareness level.
type Level int

const (
	Sentinel Level = iota
	Attentive
	Focused
	Alert
	Creative
)

var levelNames = map[Level]string{
	Sentinel:  "SENTINEL",
	Attentive: "ATTENTIVE",
	Focused:   "FOCUSED",
	Alert:     "ALERT",
	Creative:  "CREATIVE",
}

func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel resolves a level name case-insensitively.
func ParseLevel(name string) (Level, bool) {
	up := strings.ToUpper(strings.TrimSpace(name))
	for l, n := range levelNames {
		if n == up {
			return l, true
		}
	}
	return Sentinel, false
}

// LevelConfig describes what a level activates.
type LevelConfig struct {
	VisionFPS int
	Audio     bool
	LLM       bool
	TTS       bool
	Dream     bool
}

// LevelConfigs is the static table of per-level settings.
var LevelConfigs = map[Level]LevelConfig{
	Sentinel:  {VisionFPS: 2, Audio: true},
	Attentive: {VisionFPS: 10, Audio: true, LLM: true, TTS: true},
	Focused:   {VisionFPS: 15, Audio: true, LLM: true, TTS: true},
	Alert:     {VisionFPS: 30, Audio: true, LLM: true, TTS: true},
	Creative:  {VisionFPS: 1, LLM: true, Dream: true},
}

// Dwell times gating mood-driven transitions.
const (
	SentinelToCreative  = 600 * time.Second
	AttentiveToSentinel = 60 * time.Second
	FocusedToAttentive  = 30 * time.Second
	CreativeToSentinel  = 300 * time.Second
	AlertTimeout        = 60 * time.Second
)

// DefaultDebounce is the minimum gap between ordinary transitions.
const DefaultDebounce = 2 * time.Second

// MoodSource exposes the current mood.
type MoodSource interface {
	Mood() selfmodel.Mood
}

// Emitter publishes events without blocking.
type Emitter interface {
	EmitNowait(ev events.Event) bool
}

// Options configures a StateMachine.
type Options struct {
	Initial  Level
	Debounce time.Duration
	Bus      Emitter
	Now      func() time.Time
}

// OptionsFromConfig builds options from the awareness config section.
func OptionsFromConfig(c config.AwarenessConfig, bus Emitter) Options {
	lvl, _ := ParseLevel(c.Initial)
	return Options{Initial: lvl, Debounce: c.GetDebounce(), Bus: bus}
}

// StateMachine tracks the current awareness level. Safe for concurrent use.
type StateMachine struct {
	mu sync.Mutex

	state          Level
	lastTransition time.Time
	enteredAt      time.Time
	transitions    int

	debounce time.Duration
	bus      Emitter
	now      func() time.Time
}

// New creates a state machine in opts.Initial.
func New(opts Options) *StateMachine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if _, ok := LevelConfigs[opts.Initial]; !ok {
		opts.Initial = Sentinel
	}
	now := opts.Now()
	return &StateMachine{
		state:          opts.Initial,
		lastTransition: now,
		enteredAt:      now,
		debounce:       opts.Debounce,
		bus:            opts.Bus,
		now:            opts.Now,
	}
}

// State returns the current level.
func (m *StateMachine) State() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Config returns the settings of the current level.
func (m *StateMachine) Config() LevelConfig {
	return LevelConfigs[m.State()]
}

// TimeInState is how long the machine has been in its current level.
func (m *StateMachine) TimeInState() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.enteredAt)
}

// Transitions returns the number of transitions made.
func (m *StateMachine) Transitions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions
}

// IsDreaming reports whether enton is in CREATIVE.
func (m *StateMachine) IsDreaming() bool { return m.State() == Creative }

// IsActive reports whether enton is FOCUSED or on ALERT.
func (m *StateMachine) IsActive() bool {
	s := m.State()
	return s == Focused || s == Alert
}

// Transition moves to the target level. It returns false when already there
// or when the previous transition happened less than the debounce ago.
func (m *StateMachine) Transition(to Level, reason string) bool {
	return m.transition(to, reason, false)
}

// TriggerAlert forces ALERT, bypassing the debounce.
func (m *StateMachine) TriggerAlert(reason string) bool {
	return m.transition(Alert, reason, true)
}

// OnInteraction wakes enton to ATTENTIVE from SENTINEL or CREATIVE,
// bypassing the debounce. FOCUSED and ALERT are already awake and stay put.
func (m *StateMachine) OnInteraction() bool {
	switch m.State() {
	case Sentinel, Creative:
		return m.transition(Attentive, "user interaction", true)
	}
	return false
}

func (m *StateMachine) transition(to Level, reason string, force bool) bool {
	m.mu.Lock()
	if to == m.state {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	if !force && now.Sub(m.lastTransition) < m.debounce {
		from := m.state
		m.mu.Unlock()
		logging.AwarenessDebug("debounced %s -> %s (%s)", from, to, reason)
		return false
	}

	from := m.state
	m.state = to
	m.lastTransition = now
	m.enteredAt = now
	m.transitions++
	count := m.transitions
	bus := m.bus
	m.mu.Unlock()

	logging.Awareness("%s -> %s (%s) [#%d]", from, to, reason, count)
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditAwarenessChange,
		Source:    from.String(),
		Target:    to.String(),
		Success:   true,
		Message:   reason,
	})
	if bus != nil {
		bus.EmitNowait(events.SystemEvent{
			Base:   events.NewBase(),
			Type:   "awareness_change",
			Detail: fmt.Sprintf("%s->%s: %s", from, to, reason),
		})
	}
	return true
}

// Evaluate applies the mood and dwell rules once. Call it on the mood cadence.
func (m *StateMachine) Evaluate(src MoodSource) bool {
	mood := src.Mood()
	state := m.State()
	t := m.TimeInState()

	switch state {
	case Sentinel:
		if mood.Social > 0.3 {
			return m.Transition(Attentive, "person detected")
		}
		if t > SentinelToCreative {
			return m.Transition(Creative, "idle, dreaming")
		}
	case Attentive:
		if mood.Engagement > 0.6 {
			return m.Transition(Focused, "high engagement")
		}
		if mood.Social < 0.1 && t > AttentiveToSentinel {
			return m.Transition(Sentinel, "no one around")
		}
	case Focused:
		if mood.Engagement < 0.3 && t > FocusedToAttentive {
			return m.Transition(Attentive, "engagement dropped")
		}
	case Creative:
		if mood.Social > 0.2 {
			return m.Transition(Attentive, "interaction during dream")
		}
		if t > CreativeToSentinel {
			return m.Transition(Sentinel, "dream complete")
		}
	case Alert:
		if t > AlertTimeout {
			return m.Transition(Attentive, "alert timeout")
		}
	}
	return false
}

// Snapshot is the persisted form of the state machine.
type Snapshot struct {
	State       string  `json:"state"`
	TimeInState float64 `json:"time_in_state"`
	Transitions int     `json:"transitions"`
}

// Snapshot captures the current state.
func (m *StateMachine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	secs := m.now().Sub(m.enteredAt).Seconds()
	return Snapshot{
		State:       m.state.String(),
		TimeInState: float64(int(secs*10)) / 10,
		Transitions: m.transitions,
	}
}

// Restore loads a snapshot. An unknown state name leaves the state unchanged.
func (m *StateMachine) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lvl, ok := ParseLevel(s.State); ok {
		m.state = lvl
		m.enteredAt = m.now()
	} else if s.State != "" {
		logging.AwarenessWarn("unknown awareness state %q in snapshot", s.State)
	}
	m.transitions = s.Transitions
}

// Summary renders the level and its settings on one line.
func (m *StateMachine) Summary() string {
	m.mu.Lock()
	state, count := m.state, m.transitions
	t := m.now().Sub(m.enteredAt)
	m.mu.Unlock()

	cfg := LevelConfigs[state]
	return fmt.Sprintf("[%s] vision=%dfps audio=%s llm=%s dream=%s (in state %.0fs, %d transitions)",
		state, cfg.VisionFPS, onOff(cfg.Audio), onOff(cfg.LLM), onOff(cfg.Dream), t.Seconds(), count)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
