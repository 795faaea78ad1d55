package selfmodel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"enton/internal/events"
)

// SensoryState reports which senses and providers are online.
type SensoryState struct {
	CameraOnline    bool
	MicOnline       bool
	TTSReady        bool
	STTReady        bool
	LLMReady        bool
	ActiveProviders map[string]string // "llm", "stt", "tts" -> provider id
}

// Summary renders the senses as a comma-separated list.
func (s SensoryState) Summary() string {
	onOff := func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	}
	provider := func(kind string) string {
		if p, ok := s.ActiveProviders[kind]; ok && p != "" {
			return p
		}
		return "?"
	}

	parts := []string{"camera " + onOff(s.CameraOnline), "mic " + onOff(s.MicOnline)}
	if s.TTSReady {
		parts = append(parts, "voice via "+provider("tts"))
	}
	if s.STTReady {
		parts = append(parts, "ears via "+provider("stt"))
	}
	if s.LLMReady {
		parts = append(parts, "brain via "+provider("llm"))
	}
	return strings.Join(parts, ", ")
}

// SoundRecord is one heard sound.
type SoundRecord struct {
	Label      string
	Confidence float64
	At         time.Time
}

const maxRecentSounds = 10

var alertSounds = map[string]bool{"alarme": true, "sirene": true, "vidro quebrando": true}

// SelfModel is safe for concurrent use.
type SelfModel struct {
	mu sync.Mutex

	name     string
	bootTime time.Time
	now      func() time.Time
	hostPath string
	probe    func(path string) HostStats

	mood         Mood
	senses       SensoryState
	interactions int
	detections   int
	errors       int
	lastActivity string
	lastEmotion  string
	sounds       []SoundRecord
}

// Option configures a SelfModel.
type Option func(*SelfModel)

// WithClock injects a clock.
func WithClock(now func() time.Time) Option { return func(s *SelfModel) { s.now = now } }

// WithHostProbe replaces the gopsutil host probe.
func WithHostProbe(probe func(path string) HostStats) Option {
	return func(s *SelfModel) { s.probe = probe }
}

// WithHostPath sets the path whose disk usage is reported.
func WithHostPath(path string) Option { return func(s *SelfModel) { s.hostPath = path } }

// New creates a self model booted now.
func New(name string, opts ...Option) *SelfModel {
	s := &SelfModel{
		name:         name,
		now:          time.Now,
		probe:        ReadHost,
		lastActivity: "none",
		lastEmotion:  "neutral",
		senses:       SensoryState{ActiveProviders: map[string]string{}},
	}
	for _, o := range opts {
		o(s)
	}
	s.bootTime = s.now()
	s.mood = NewMood(s.bootTime)
	return s
}

// --- recording ---

// RecordInteraction counts a conversation turn.
func (s *SelfModel) RecordInteraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions++
	s.mood.OnInteraction()
}

// RecordDetection counts a vision detection.
func (s *SelfModel) RecordDetection(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections++
	s.mood.OnDetection(label)
}

// RecordActivity stores the user's latest activity label.
func (s *SelfModel) RecordActivity(activity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = activity
	low := strings.ToLower(activity)
	switch {
	case strings.Contains(low, "acenando"), strings.Contains(low, "maos pra cima"):
		s.mood.addSocial(0.1)
	case strings.Contains(low, "no celular"):
		s.mood.addEngagement(-0.03)
	}
}

// RecordEmotion stores the user's latest facial emotion.
func (s *SelfModel) RecordEmotion(emotion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmotion = emotion
	switch strings.ToLower(emotion) {
	case "feliz", "happy", "surpreso", "surprised":
		s.mood.addEngagement(0.1)
	case "triste", "sad", "irritado", "angry", "medo", "fear":
		s.mood.addSocial(-0.1)
	}
}

// RecordSound remembers a classified sound; alarm-like sounds raise engagement.
func (s *SelfModel) RecordSound(label string, confidence float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sounds = append(s.sounds, SoundRecord{Label: label, Confidence: confidence, At: s.now()})
	if len(s.sounds) > maxRecentSounds {
		s.sounds = s.sounds[len(s.sounds)-maxRecentSounds:]
	}
	if alertSounds[strings.ToLower(label)] {
		s.mood.addEngagement(0.2)
	}
}

// RecordError counts a failure.
func (s *SelfModel) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
	s.mood.OnError()
}

// RecordIdle notes that nothing happened.
func (s *SelfModel) RecordIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood.OnIdle()
}

// TickMood applies mood decay.
func (s *SelfModel) TickMood() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood.Tick(s.now())
}

// Mood returns a copy of the current mood.
func (s *SelfModel) Mood() Mood {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mood
}

// RestoreMood sets both mood axes, e.g. from persisted state.
func (s *SelfModel) RestoreMood(engagement, social float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood.Engagement = clamp(engagement)
	s.mood.Social = clamp(social)
	s.mood.lastUpdate = s.now()
}

// UpdateSenses mutates the sensory state under the lock.
func (s *SelfModel) UpdateSenses(fn func(*SensoryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.senses)
}

// Senses returns a copy of the sensory state.
func (s *SelfModel) Senses() SensoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.senses
	out.ActiveProviders = make(map[string]string, len(s.senses.ActiveProviders))
	for k, v := range s.senses.ActiveProviders {
		out.ActiveProviders[k] = v
	}
	return out
}

// LastEmotion returns the last recorded user emotion.
func (s *SelfModel) LastEmotion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEmotion
}

// LastActivity returns the last recorded user activity.
func (s *SelfModel) LastActivity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RecentSounds returns up to the last 10 sounds, oldest first.
func (s *SelfModel) RecentSounds() []SoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SoundRecord(nil), s.sounds...)
}

// Counters are the lifetime counts since boot.
type Counters struct {
	Interactions int
	Detections   int
	Errors       int
}

// Counters returns the counts since boot.
func (s *SelfModel) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{Interactions: s.interactions, Detections: s.detections, Errors: s.errors}
}

// Uptime is the time since boot.
func (s *SelfModel) Uptime() time.Duration { return s.now().Sub(s.bootTime) }

// UptimeHuman renders uptime as "42s", "5min" or "2h13min".
func (s *SelfModel) UptimeHuman() string { return HumanizeUptime(s.Uptime()) }

// HumanizeUptime renders a duration as "42s", "5min" or "2h13min".
func HumanizeUptime(d time.Duration) string {
	sec := int(d.Seconds())
	switch {
	case sec < 60:
		return fmt.Sprintf("%ds", sec)
	case sec < 3600:
		return fmt.Sprintf("%dmin", sec/60)
	}
	return fmt.Sprintf("%dh%dmin", sec/3600, (sec%3600)/60)
}

// Introspect renders the self model as prose for prompt context.
func (s *SelfModel) Introspect() string {
	host := s.probe(s.hostPath)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood.Tick(s.now())

	parts := []string{
		fmt.Sprintf("I am %s. Running for %s.", s.name, HumanizeUptime(s.now().Sub(s.bootTime))),
		fmt.Sprintf("Mood: %s (engagement=%.1f, social=%.1f).", s.mood.Label(), s.mood.Engagement, s.mood.Social),
		fmt.Sprintf("User emotion: %s. User activity: %s.", s.lastEmotion, s.lastActivity),
		fmt.Sprintf("Senses: %s.", s.senses.Summary()),
		host.String() + ".",
		fmt.Sprintf("Stats: %d chats, %d detections.", s.interactions, s.detections),
	}
	if len(s.sounds) > 0 {
		recent := s.sounds
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		labels := make([]string, len(recent))
		for i, r := range recent {
			labels[i] = r.Label
		}
		parts = append(parts, fmt.Sprintf("Recent sounds: %s.", strings.Join(labels, ", ")))
	}
	if s.errors > 0 {
		parts = append(parts, fmt.Sprintf("Errors so far: %d.", s.errors))
	}
	return strings.Join(parts, " ")
}

// Attach registers perception handlers on the bus.
func (s *SelfModel) Attach(bus *events.Bus) {
	bus.On(events.KindDetection, func(_ context.Context, ev events.Event) error {
		s.RecordDetection(ev.(events.DetectionEvent).Label)
		return nil
	})
	bus.On(events.KindActivity, func(_ context.Context, ev events.Event) error {
		s.RecordActivity(ev.(events.ActivityEvent).Activity)
		return nil
	})
	bus.On(events.KindEmotion, func(_ context.Context, ev events.Event) error {
		e := ev.(events.EmotionEvent)
		label := e.EmotionEN
		if label == "" {
			label = e.Emotion
		}
		s.RecordEmotion(label)
		return nil
	})
	bus.On(events.KindSound, func(_ context.Context, ev events.Event) error {
		e := ev.(events.SoundEvent)
		s.RecordSound(e.Label, e.Confidence)
		return nil
	})
}
