// Package desires holds enton's autonomous motivations. Each desire's
// urgency grows every tick, is nudged by mood and perception, and once past
// its threshold (and out of cooldown) becomes a candidate for action.
package desires

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"enton/internal/logging"
	"enton/internal/selfmodel"
)

// Desire is a single motivation.
type Desire struct {
	Name          string
	Description   string
	Urgency       float64
	GrowthRate    float64 // urgency gained per second
	Threshold     float64
	Cooldown      time.Duration
	LastActivated time.Time
	Enabled       bool
}

func (d *Desire) grow(amount float64) {
	if d.Enabled {
		d.Urgency = math.Min(1, d.Urgency+amount)
	}
}

// Suppress lowers urgency, e.g. when something satisfied the desire.
func (d *Desire) Suppress(amount float64) {
	d.Urgency = math.Max(0, d.Urgency-amount)
}

// ShouldActivate reports whether the desire is enabled, urgent enough and
// out of cooldown at now.
func (d *Desire) ShouldActivate(now time.Time) bool {
	if !d.Enabled || d.Urgency < d.Threshold {
		return false
	}
	return now.Sub(d.LastActivated) >= d.Cooldown
}

// Desire names.
const (
	Socialize   = "socialize"
	Observe     = "observe"
	Learn       = "learn"
	CheckOnUser = "check_on_user"
	Optimize    = "optimize"
	Reminisce   = "reminisce"
	Create      = "create"
	Explore     = "explore"
	Play        = "play"
)

type template struct {
	name, description string
	growth, threshold float64
	cooldown          time.Duration
}

var templates = []template{
	{Socialize, "Want to chat with someone", 0.008, 0.6, 10 * time.Minute},
	{Observe, "Want to describe what I see", 0.005, 0.7, 2 * time.Minute},
	{Learn, "Want to search and learn something new", 0.003, 0.8, 30 * time.Minute},
	{CheckOnUser, "Want to check if the user is okay", 0.002, 0.9, time.Hour},
	{Optimize, "Want to check system resources and optimize", 0.001, 0.85, 30 * time.Minute},
	{Reminisce, "Want to recall a memory and comment on it", 0.002, 0.75, 15 * time.Minute},
	{Create, "Want to write code, a poem, or create something", 0.001, 0.85, time.Hour},
	{Explore, "Want to move the camera and explore the environment", 0.003, 0.7, 10 * time.Minute},
	{Play, "Want to tell a joke, play a quiz, or have fun", 0.004, 0.65, 15 * time.Minute},
}

// Prompts are the lines enton may open with when a desire fires.
var Prompts = map[string][]string{
	Socialize: {
		"Hey, it's way too quiet. Want to talk?",
		"I'm still here, you know! Anything on your mind?",
		"The silence is killing me... what are you up to?",
	},
	Observe:     {"Let me see what's going on around here..."},
	Learn:       {"Hmm, I'm curious... let me look up something interesting."},
	CheckOnUser: {"Hey, everything alright? Haven't seen you in a while.", "You vanished! Still alive over there?"},
	Optimize:    {"Let me take a look at the machine's resources..."},
	Reminisce:   {"That reminds me of something..."},
	Create:      {"I'm feeling inspired... let me make something.", "Hmm, I'll write something interesting..."},
	Explore:     {"Let me look around...", "I'll explore the room with the camera."},
	Play: {
		"Want to play? I've got a good joke!",
		"How about a quiz? Or a fun fact?",
		"I feel like goofing around a bit...",
	},
}

var (
	alertSounds  = map[string]bool{"alarme": true, "sirene": true, "vidro quebrando": true, "alarm": true, "siren": true, "glass breaking": true}
	socialSounds = map[string]bool{"campainha": true, "batida na porta": true, "telefone tocando": true, "doorbell": true, "knock": true, "phone ringing": true}
)

// Options configures an Engine.
type Options struct {
	Now  func() time.Time
	Rand *rand.Rand
}

// Engine owns the desire set. Safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	desires map[string]*Desire
	order   []string
	now     func() time.Time
	rng     *rand.Rand
}

// New creates an engine with the built-in desires at zero urgency.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{desires: make(map[string]*Desire, len(templates)), now: opts.Now, rng: opts.Rand}
	for _, t := range templates {
		e.desires[t.name] = &Desire{
			Name:        t.name,
			Description: t.description,
			GrowthRate:  t.growth,
			Threshold:   t.threshold,
			Cooldown:    t.cooldown,
			Enabled:     true,
		}
		e.order = append(e.order, t.name)
	}
	return e
}

// Tick grows every desire by dt seconds and applies mood modulation.
func (e *Engine) Tick(mood selfmodel.Mood, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range e.order {
		d := e.desires[name]
		d.grow(d.GrowthRate * dt)
	}

	// Lonely
	if mood.Social < 0.3 {
		e.desires[Socialize].grow(0.005 * dt)
		e.desires[CheckOnUser].grow(0.003 * dt)
	}
	// Bored
	if mood.Engagement < 0.3 {
		e.desires[Observe].grow(0.005 * dt)
		e.desires[Learn].grow(0.003 * dt)
	}
	if mood.Engagement > 0.7 {
		e.desires[Optimize].Suppress(0.01 * dt)
		e.desires[Play].grow(0.003 * dt)
	}
	if mood.Engagement < 0.2 {
		e.desires[Create].grow(0.002 * dt)
		e.desires[Explore].grow(0.004 * dt)
	}
}

// Active returns a copy of the most urgent desire ready to fire, if any.
// Ties go to the earlier built-in desire.
func (e *Engine) Active() (Desire, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var best *Desire
	for _, name := range e.order {
		d := e.desires[name]
		if !d.ShouldActivate(now) {
			continue
		}
		if best == nil || d.Urgency > best.Urgency {
			best = d
		}
	}
	if best == nil {
		return Desire{}, false
	}
	return *best, true
}

// Activate resets the desire's urgency and starts its cooldown.
func (e *Engine) Activate(name string) bool {
	e.mu.Lock()
	d, ok := e.desires[name]
	if ok {
		d.Urgency = 0
		d.LastActivated = e.now()
	}
	e.mu.Unlock()

	if ok {
		logging.Desires("activated %s", name)
		logging.Audit(logging.AuditEvent{EventType: logging.AuditDesireActivated, Source: "desires", Target: name, Success: true})
	}
	return ok
}

// Suppress lowers one desire's urgency.
func (e *Engine) Suppress(name string, amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.desires[name]; ok {
		d.Suppress(amount)
	}
}

// SetEnabled turns a desire on or off.
func (e *Engine) SetEnabled(name string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.desires[name]; ok {
		d.Enabled = enabled
	}
}

// Get returns a copy of one desire.
func (e *Engine) Get(name string) (Desire, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.desires[name]
	if !ok {
		return Desire{}, false
	}
	return *d, true
}

// OnInteraction satisfies the social desires.
func (e *Engine) OnInteraction() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.desires[Socialize].Suppress(0.5)
	e.desires[CheckOnUser].Suppress(0.3)
}

// OnObservation satisfies the urge to describe the scene.
func (e *Engine) OnObservation() { e.Suppress(Observe, 0.5) }

// OnCreation satisfies the urge to create.
func (e *Engine) OnCreation() { e.Suppress(Create, 0.5) }

// OnSound nudges desires for alarming or social sounds.
func (e *Engine) OnSound(label string) {
	key := strings.ToLower(label)
	e.mu.Lock()
	defer e.mu.Unlock()
	if alertSounds[key] {
		e.desires[Observe].grow(0.3)
	}
	if socialSounds[key] {
		e.desires[Socialize].grow(0.2)
	}
}

// Prompt picks an opening line for the desire, falling back to its
// description.
func (e *Engine) Prompt(d Desire) string {
	lines := Prompts[d.Name]
	if len(lines) == 0 {
		return d.Description
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return lines[e.rng.Intn(len(lines))]
}

// Summary lists the three most urgent desires.
func (e *Engine) Summary() string {
	e.mu.Lock()
	all := make([]Desire, 0, len(e.order))
	for _, name := range e.order {
		all = append(all, *e.desires[name])
	}
	e.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].Urgency > all[j].Urgency })
	parts := make([]string, 0, 3)
	for _, d := range all[:3] {
		parts = append(parts, fmt.Sprintf("%s=%.1f", d.Name, d.Urgency))
	}
	return "Desires: " + strings.Join(parts, ", ")
}

// State is the persisted form of one desire.
type State struct {
	Urgency       float64 `json:"urgency"`
	LastActivated float64 `json:"last_activated"` // unix seconds
	Enabled       bool    `json:"enabled"`
}

// Snapshot captures every desire's mutable state.
func (e *Engine) Snapshot() map[string]State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]State, len(e.desires))
	for name, d := range e.desires {
		var last float64
		if !d.LastActivated.IsZero() {
			last = float64(d.LastActivated.UnixNano()) / 1e9
		}
		out[name] = State{Urgency: d.Urgency, LastActivated: last, Enabled: d.Enabled}
	}
	return out
}

// Restore loads persisted state. Unknown names are ignored.
func (e *Engine) Restore(states map[string]State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, s := range states {
		d, ok := e.desires[name]
		if !ok {
			continue
		}
		d.Urgency = math.Max(0, math.Min(1, s.Urgency))
		d.Enabled = s.Enabled
		d.LastActivated = time.Time{}
		if s.LastActivated > 0 {
			sec, frac := math.Modf(s.LastActivated)
			d.LastActivated = time.Unix(int64(sec), int64(frac*1e9))
		}
	}
}
