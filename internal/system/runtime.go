package system

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"enton/internal/desires"
	"enton/internal/events"
	"enton/internal/gwt"
	"enton/internal/logging"
	"enton/internal/store"
	"enton/internal/tools/memory"
)

// heardBuffer bounds transcriptions waiting for the brain.
const heardBuffer = 8

// Runtime drives a Mind: workspace ticks, mood and desires, conversation,
// speech and skill hot reload.
type Runtime struct {
	mind *Mind
	obs  *observer
	rng  *rand.Rand

	heard   chan string
	desired chan desires.Desire
}

// NewRuntime prepares the loops for m and registers its bus handlers. Call
// it once per Mind.
func NewRuntime(m *Mind) *Runtime {
	r := &Runtime{
		mind:    m,
		obs:     newObserver(m.Config.Runtime.GetIdleTimeout(), nil),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		heard:   make(chan string, heardBuffer),
		desired: make(chan desires.Desire, 1),
	}
	r.obs.attach(m.Bus)
	m.Bus.On(events.KindTranscription, r.onTranscription)
	return r
}

// Run blocks until ctx is cancelled or a loop fails.
func (r *Runtime) Run(ctx context.Context) error {
	m := r.mind
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return m.Bus.Run(ctx) })
	g.Go(func() error { return m.Voice.Run(ctx) })
	if m.capture != nil {
		g.Go(func() error { return m.Ears.Run(ctx, m.capture) })
	}
	if m.Watcher != nil {
		g.Go(func() error { return m.Watcher.Run(ctx) })
	}
	g.Go(func() error { return r.workspaceLoop(ctx) })
	g.Go(func() error { return r.moodLoop(ctx) })
	g.Go(func() error { return r.desireLoop(ctx) })
	g.Go(func() error { return r.conversationLoop(ctx) })
	g.Go(func() error { return r.lifecycleLoop(ctx) })

	m.Bus.EmitNowait(events.SystemEvent{Base: events.NewBase(), Type: "startup", Detail: m.Lifecycle.Summary()})
	if m.WakeUp != "" {
		r.say(m.WakeUp)
	}
	logging.Runtime("runtime started")

	err := g.Wait()
	logging.Runtime("runtime stopped: %v", err)
	return err
}

// --- loops ---

func (r *Runtime) workspaceLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.mind.Config.Workspace.GetTickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one cognitive cycle: observe, score surprise, let the modules
// compete, then act on the winner.
func (r *Runtime) tick(ctx context.Context) {
	m := r.mind
	state, left := r.obs.state()
	if left {
		logging.Runtime("person left")
		m.Bus.EmitNowait(events.SystemEvent{Base: events.NewBase(), Type: "person_left"})
		if m.Self.Mood().Engagement > 0.3 {
			r.say("See you later!")
		}
	}
	m.Perception.UpdateState(state)

	winner := m.Workspace.Tick()
	if winner == nil {
		return
	}
	logging.WorkspaceDebug("winner: %s", winner)

	if winner.Modality == gwt.ModalityMemoryRecall {
		full := winner.Str("full_text")
		if full == "" {
			full = winner.Content
		}
		if _, err := m.Store.Remember(ctx, store.KindStudy, full, []string{winner.Source}); err != nil {
			logging.RuntimeWarn("failed to remember %s result: %v", winner.Source, err)
		}
		m.Bus.EmitNowait(events.BrainResponse{Base: events.NewBase(), Text: winner.Content, Source: winner.Source})
	}
}

func (r *Runtime) moodLoop(ctx context.Context) error {
	interval := r.mind.Config.Runtime.GetMoodInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.moodTick(interval.Seconds())
		}
	}
}

// moodTick decays mood, re-evaluates awareness and grows desires by dt
// seconds. A desire ready to fire is handed to the desire loop.
func (r *Runtime) moodTick(dt float64) {
	m := r.mind
	m.Self.TickMood()
	m.Awareness.Evaluate(m.Self)
	m.Desires.Tick(m.Self.Mood(), dt)

	d, ok := m.Desires.Active()
	if !ok || m.Voice.IsSpeaking() {
		return
	}
	select {
	case r.desired <- d:
		m.Desires.Activate(d.Name)
	default:
		// still acting on the previous desire
	}
}

func (r *Runtime) desireLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-r.desired:
			r.actOn(ctx, d)
		}
	}
}

// agentPrompts are the brain tasks behind desires that need thinking.
var agentPrompts = map[string]string{
	desires.Learn:    "Look up something interesting and curious, and tell me about it in one or two sentences.",
	desires.Optimize: "Check the system status (CPU, memory, disk) and tell me whether everything is fine.",
	desires.Create:   "Create something short and creative: a haiku, a nerdy joke or a programming tip. Pick one at random.",
	desires.Explore:  "Pick something about the world you have never looked into and describe what you find.",
	desires.Play:     "Tell a short joke, a curious fact, or propose a quick quiz. Be fun and brief.",
}

func (r *Runtime) actOn(ctx context.Context, d desires.Desire) {
	m := r.mind
	logging.Runtime("acting on desire %s (urgency=%.2f)", d.Name, d.Urgency)
	m.Bus.EmitNowait(events.SystemEvent{Base: events.NewBase(), Type: "desire_activated", Detail: d.Name})

	switch d.Name {
	case desires.Observe:
		m.Desires.OnObservation()
	case desires.Create:
		m.Desires.OnCreation()
	case desires.Reminisce:
		eps, err := m.Store.Recent(ctx, 3)
		if err != nil || len(eps) == 0 {
			r.say(m.Desires.Prompt(d))
			return
		}
		r.say("I remember... " + eps[r.rng.Intn(len(eps))].Content)
		return
	}

	prompt, ok := agentPrompts[d.Name]
	if !ok {
		r.say(m.Desires.Prompt(d))
		return
	}
	resp, err := m.Brain.ThinkAgent(ctx, prompt, r.systemPrompt(ctx, ""))
	if err != nil {
		logging.RuntimeWarn("desire %s: %v", d.Name, err)
		m.Self.RecordError()
		return
	}
	r.say(resp)
}

func (r *Runtime) onTranscription(_ context.Context, ev events.Event) error {
	t := ev.(events.TranscriptionEvent)
	if !t.IsFinal || strings.TrimSpace(t.Text) == "" {
		return nil
	}
	select {
	case r.heard <- t.Text:
	default:
		logging.RuntimeWarn("dropping transcription, brain busy: %q", t.Text)
	}
	return nil
}

func (r *Runtime) conversationLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-r.heard:
			r.respond(ctx, text)
		}
	}
}

// respond handles one thing the user said.
func (r *Runtime) respond(ctx context.Context, text string) {
	m := r.mind
	m.Self.RecordInteraction()
	m.Desires.OnInteraction()
	m.Awareness.OnInteraction()

	resp, err := m.Brain.Respond(ctx, text, r.systemPrompt(ctx, text))
	if err != nil {
		logging.RuntimeError("brain failed to respond: %v", err)
		m.Self.RecordError()
		return
	}
	if resp == "" {
		return
	}

	m.Bus.EmitNowait(events.BrainResponse{Base: events.NewBase(), Text: resp, Source: "brain"})
	r.say(resp)

	episode := fmt.Sprintf("User: %q -> Me: %q", cut(text, 60), cut(resp, 60))
	if _, err := m.Store.Remember(ctx, store.KindConversation, episode, []string{"chat"}); err != nil {
		logging.RuntimeWarn("failed to remember conversation: %v", err)
	}
}

func (r *Runtime) lifecycleLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.mind.Config.Runtime.GetLifecycleInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.mind.SaveState(); err != nil {
				logging.RuntimeWarn("periodic save failed: %v", err)
			}
		}
	}
}

// --- helpers ---

// systemPrompt assembles what enton knows about itself and the moment.
// query, when set, pulls related memories in.
func (r *Runtime) systemPrompt(ctx context.Context, query string) string {
	m := r.mind
	var b strings.Builder
	b.WriteString(m.Self.Introspect())
	b.WriteString("\nAWARENESS: ")
	b.WriteString(m.Awareness.Summary())
	b.WriteString("\nMETACOGNITION: ")
	b.WriteString(m.Metacognition.Introspect())
	if m.Errors.IsDegraded() {
		b.WriteString("\nWARNING: your language providers keep failing. Tell the user answers may be slow or degraded.")
	}

	if query != "" {
		if eps, err := m.Store.Recall(ctx, query, 3); err == nil && len(eps) > 0 {
			b.WriteString("\n")
			b.WriteString(memory.FormatEpisodes(query, eps))
		}
	}
	if extra := m.Context.Assemble(0); extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
	}
	b.WriteString("\nYou have tools. Use them when they help answer.")
	return b.String()
}

func (r *Runtime) say(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := r.mind.Voice.Say(text); err != nil {
		logging.RuntimeWarn("voice: %v", err)
	}
}

func cut(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
