package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"enton/internal/awareness"
	"enton/internal/config"
	"enton/internal/desires"
	"enton/internal/events"
	"enton/internal/prediction"
	"enton/internal/providers"
	"enton/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLLM struct{ reply string }

func (f *fakeLLM) ID() string { return "local" }

func (f *fakeLLM) Generate(ctx context.Context, prompt, system string, history []providers.Message) (string, error) {
	return f.reply, nil
}

func (f *fakeLLM) GenerateWithTools(ctx context.Context, msgs []providers.Message, system string, defs []providers.ToolDefinition) (providers.Response, error) {
	return providers.Response{Text: f.reply}, nil
}

func (f *fakeLLM) GenerateWithImage(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	return "", errors.New("blind")
}

type fakeTTS struct{}

func (fakeTTS) ID() string { return "local" }

func (fakeTTS) Synthesize(ctx context.Context, text string) (providers.Audio, error) {
	return providers.Audio{Samples: []float32{0.2, -0.2}, SampleRate: 16000}, nil
}

type recordingPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *recordingPlayer) Play(ctx context.Context, a providers.Audio) error {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
	return nil
}

func (p *recordingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Skills.Watch = false
	cfg.Workspace.TickInterval = "10ms"
	cfg.Runtime.MoodInterval = "1h"
	cfg.Runtime.LifecycleInterval = "1h"
	return cfg
}

func testProviders(reply string) providers.Set {
	set := providers.Set{
		LLM: providers.NewChain[providers.LLM]("local", nil),
		STT: providers.NewChain[providers.STT]("local", nil),
		TTS: providers.NewChain[providers.TTS]("local", nil),
	}
	set.LLM.Register(&fakeLLM{reply: reply})
	set.TTS.Register(fakeTTS{})
	return set
}

func TestGPULock(t *testing.T) {
	g := NewGPULock()
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	_, ok := g.TryAcquire()
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	r2, ok := g.TryAcquire()
	require.True(t, ok)
	r2()

	g.Lock()
	_, ok = g.TryAcquire()
	assert.False(t, ok)
	g.Unlock()
}

const greetSkill = `package main

var Name = "greet"

func Run(args map[string]interface{}) (string, error) { return "hi", nil }
`

func TestBootMind(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Paths.SkillsDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.SkillsDir(), "greet.go"), []byte(greetSkill), 0644))

	m, err := BootMind(context.Background(), cfg, WithProviders(testProviders("ok")), WithPlayer(&recordingPlayer{}))
	require.NoError(t, err)

	for _, name := range []string{"run_command", "web_fetch", "github_learner", "remember", "recall", "system_status", "greet"} {
		assert.True(t, m.Tools.Has(name), "tool %s", name)
	}
	assert.Equal(t, []string{"perception", "executive", "github_skill", "agentic_module"}, m.Workspace.Modules())
	assert.Equal(t, 1, m.Lifecycle.BootCount())
	assert.Empty(t, m.WakeUp)
	senses := m.Self.Senses()
	assert.True(t, senses.LLMReady)
	assert.False(t, senses.STTReady)
	assert.Equal(t, "local", senses.ActiveProviders["llm"])

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.FileExists(t, cfg.Paths.StatePath())

	m2, err := BootMind(context.Background(), cfg, WithProviders(testProviders("ok")), WithPlayer(&recordingPlayer{}))
	require.NoError(t, err)
	defer m2.Close()
	assert.Equal(t, 2, m2.Lifecycle.BootCount())
}

func TestBootMind_ShellDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.ShellEnabled = false
	cfg.Skills.Enabled = false

	m, err := BootMind(context.Background(), cfg, WithProviders(testProviders("ok")), WithPlayer(&recordingPlayer{}))
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.Tools.Has("run_command"))
	assert.Nil(t, m.Skills)
	assert.Nil(t, m.Watcher)
}

func TestRuntime_ConversationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	player := &recordingPlayer{}
	m, err := BootMind(context.Background(), cfg, WithProviders(testProviders("Hi, I'm enton.")), WithPlayer(player))
	require.NoError(t, err)
	defer m.Close()

	rt := NewRuntime(m)
	var (
		mu        sync.Mutex
		responses []string
	)
	m.Bus.On(events.KindBrainResponse, func(_ context.Context, ev events.Event) error {
		mu.Lock()
		responses = append(responses, ev.(events.BrainResponse).Text)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	require.NoError(t, m.Bus.Emit(ctx, events.TranscriptionEvent{Base: events.NewBase(), Text: "hello there", IsFinal: true}))
	require.NoError(t, m.Bus.Emit(ctx, events.TranscriptionEvent{Base: events.NewBase(), Text: "partial", IsFinal: false}))

	require.Eventually(t, func() bool { return player.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		n, err := m.Store.CountEpisodes(context.Background())
		return err == nil && n >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return m.Workspace.StepCount() > 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	eps, err := m.Store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, store.KindConversation, eps[0].Kind)
	assert.Contains(t, eps[0].Content, "hello there")

	mu.Lock()
	assert.Contains(t, responses, "Hi, I'm enton.")
	mu.Unlock()
	assert.Equal(t, 1, m.Self.Counters().Interactions)
}

func TestRuntime_SystemPromptWarnsWhenDegraded(t *testing.T) {
	cfg := testConfig(t)
	m, err := BootMind(context.Background(), cfg, WithProviders(testProviders("ok")), WithPlayer(&recordingPlayer{}))
	require.NoError(t, err)
	defer m.Close()
	rt := NewRuntime(m)

	ctx := context.Background()
	assert.NotContains(t, rt.systemPrompt(ctx, ""), "providers keep failing")

	unavailable := func(context.Context, string) (string, error) { return "", errors.New("503 service unavailable") }
	for i := 0; i < 10 && !m.Errors.IsDegraded(); i++ {
		_, rec := m.Errors.Execute(ctx, unavailable, "hello", "local")
		require.NotNil(t, rec)
	}
	require.True(t, m.Errors.IsDegraded())
	assert.Contains(t, rt.systemPrompt(ctx, ""), "WARNING: your language providers keep failing")

	_, rec := m.Errors.Execute(ctx, func(context.Context, string) (string, error) { return "fine", nil }, "hello", "local")
	require.Nil(t, rec)
	assert.NotContains(t, rt.systemPrompt(ctx, ""), "providers keep failing")
}

type textTTS struct {
	mu    sync.Mutex
	texts []string
}

func (*textTTS) ID() string { return "local" }

func (f *textTTS) Synthesize(ctx context.Context, text string) (providers.Audio, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return providers.Audio{Samples: []float32{0.1}, SampleRate: 16000}, nil
}

func (f *textTTS) said(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if t == text {
			return true
		}
	}
	return false
}

func TestRuntime_UrgentSoundRaisesAlert(t *testing.T) {
	cfg := testConfig(t)
	tts := &textTTS{}
	set := testProviders("ok")
	set.TTS = providers.NewChain[providers.TTS]("local", nil)
	set.TTS.Register(tts)

	m, err := BootMind(context.Background(), cfg, WithProviders(set), WithPlayer(&recordingPlayer{}))
	require.NoError(t, err)
	defer m.Close()

	rt := NewRuntime(m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	require.Eventually(t, func() bool {
		return m.WakeUp == "" || (m.Voice.Spoken() >= 1 && !m.Voice.IsSpeaking())
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Bus.Emit(ctx, events.SoundEvent{Base: events.NewBase(), Label: "dog bark", Confidence: 0.9}))
	require.NoError(t, m.Bus.Emit(ctx, events.SoundEvent{Base: events.NewBase(), Label: "Sirene", Confidence: 0.9}))

	require.Eventually(t, func() bool { return m.Awareness.State() == awareness.Alert }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return tts.said("A siren! What's going on?") }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	d, ok := m.Desires.Get(desires.Observe)
	require.True(t, ok)
	assert.InDelta(t, 0.3, d.Urgency, 1e-9)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestObserver(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	o := newObserver(time.Minute, c.Now)

	st, left := o.state()
	assert.False(t, st.UserPresent)
	assert.False(t, left)
	assert.Equal(t, prediction.ActivityLow, st.ActivityLevel)

	o.stimulus(true)
	o.stimulus(false)
	st, _ = o.state()
	assert.True(t, st.UserPresent)
	assert.Equal(t, prediction.ActivityMedium, st.ActivityLevel)

	for range 5 {
		o.stimulus(false)
	}
	st, _ = o.state()
	assert.Equal(t, prediction.ActivityHigh, st.ActivityLevel)

	c.Advance(2 * time.Minute)
	st, left = o.state()
	assert.False(t, st.UserPresent)
	assert.True(t, left)

	_, left = o.state()
	assert.False(t, left, "leaving is reported once")
}
