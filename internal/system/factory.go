// Package system wires every component into a Mind and runs its loops.
// It acts as the "motherboard": nothing else in enton holds global state.
package system

import (
	"context"
	"fmt"
	"os"
	"strings"

	"enton/internal/awareness"
	"enton/internal/brain"
	"enton/internal/config"
	"enton/internal/contextengine"
	"enton/internal/desires"
	"enton/internal/errorloop"
	"enton/internal/events"
	"enton/internal/gwt"
	"enton/internal/lifecycle"
	"enton/internal/logging"
	"enton/internal/metacognition"
	"enton/internal/prediction"
	"enton/internal/providers"
	"enton/internal/selfmodel"
	"enton/internal/skills"
	"enton/internal/speech"
	"enton/internal/store"
	"enton/internal/tools"
	"enton/internal/tools/memory"
	"enton/internal/tools/research"
	"enton/internal/tools/shell"
	"enton/internal/tools/sysinfo"
)

// busSize is the event queue capacity.
const busSize = 256

// urgentSounds raise ALERT and get an immediate spoken reaction, without a
// brain call. Keys are lower-case sound labels.
var urgentSounds = map[string]string{
	"alarm":           "An alarm! Is everything okay?",
	"alarme":          "An alarm! Is everything okay?",
	"siren":           "A siren! What's going on?",
	"sirene":          "A siren! What's going on?",
	"glass breaking":  "Whoa, what was that noise?!",
	"vidro quebrando": "Whoa, what was that noise?!",
}

// Mind is a fully wired enton instance.
type Mind struct {
	Config *config.Config

	GPU       *GPULock
	Bus       *events.Bus
	Providers providers.Set
	Tools     *tools.Registry
	Store     *store.Store
	Context   *contextengine.Engine
	Errors    *errorloop.LoopBack

	Self          *selfmodel.SelfModel
	Desires       *desires.Engine
	Awareness     *awareness.StateMachine
	Metacognition *metacognition.Engine
	Prediction    *prediction.Engine

	Workspace  *gwt.GlobalWorkspace
	Perception *gwt.PerceptionModule
	Tasks      []*gwt.TaskModule

	Brain   *brain.Brain
	Ears    *speech.Ears
	Voice   *speech.Voice
	Learner *research.GitHubLearner

	Skills  *skills.Registry // nil when skills are disabled
	Watcher *skills.Watcher  // nil unless skills.watch is set

	Lifecycle *lifecycle.Lifecycle
	WakeUp    string // greeting produced by the lifecycle on boot

	capture <-chan providers.Audio
	closed  bool
}

// Option customizes BootMind.
type Option func(*bootOptions)

type bootOptions struct {
	providers *providers.Set
	player    speech.Player
	capture   <-chan providers.Audio
}

// WithProviders replaces the provider chains built from config.
func WithProviders(set providers.Set) Option {
	return func(o *bootOptions) { o.providers = &set }
}

// WithPlayer replaces the configured audio player.
func WithPlayer(p speech.Player) Option {
	return func(o *bootOptions) { o.player = p }
}

// WithCapture feeds microphone chunks to Ears. Without it Ears does not run.
func WithCapture(ch <-chan providers.Audio) Option {
	return func(o *bootOptions) { o.capture = ch }
}

// BootMind builds every component from cfg. The returned Mind must be
// closed, which persists lifecycle state.
func BootMind(ctx context.Context, cfg *config.Config, opts ...Option) (*Mind, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "BootMind")
	defer timer.Stop()

	var o bootOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	m := &Mind{Config: cfg, GPU: NewGPULock(), Bus: events.NewBus(busSize), capture: o.capture}

	// 1. Memory and context
	st, err := store.Open(cfg.Paths.MemoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open memory: %w", err)
	}
	m.Store = st
	m.Context = contextengine.New(contextengine.Options{
		MaxTokens:     cfg.Context.MaxTokens,
		CheckpointDir: cfg.Paths.CheckpointDir(),
	})
	m.Errors = errorloop.New(errorloop.OptionsFromConfig(cfg.Errors, m.Context))

	// 2. Cognitive state
	m.Metacognition = metacognition.New(metacognition.OptionsFromConfig(cfg.Metacognition))
	m.Metacognition.SetSink(st)
	m.Self = selfmodel.New(cfg.Name, selfmodel.WithHostPath(cfg.Paths.DataDir))
	m.Self.Attach(m.Bus)
	m.Desires = desires.New(desires.Options{})
	m.Awareness = awareness.New(awareness.OptionsFromConfig(cfg.Awareness, m.Bus))
	world := prediction.NewWorldModel(cfg.Paths.WorldModelPath(), cfg.Prediction.ColdStartSamples)
	m.Prediction = prediction.NewEngine(world, prediction.OptionsFromConfig(cfg.Prediction))

	// 3. Providers
	if o.providers != nil {
		m.Providers = *o.providers
	} else {
		m.Providers = providers.FromConfig(ctx, cfg, m.GPU)
	}

	// 4. Tools
	m.Tools = tools.NewRegistry()
	m.Learner = research.NewGitHubLearner(cfg.Tools.GitHubToken, cfg.Tools.GetWebFetchTimeout())
	if err := RegisterTools(m.Tools, cfg, m.Store, m.Self, m.Learner); err != nil {
		st.Close()
		return nil, err
	}

	// 5. Brain, ears and voice
	m.Brain = brain.New(m.Providers.LLM, brain.OptionsFromConfig(cfg.Brain))
	m.Brain.SetTools(m.Tools)
	m.Brain.SetTracer(m.Metacognition)
	m.Brain.SetErrorLoop(m.Errors)

	m.Ears = speech.NewEars(m.Providers.STT, m.Bus, speech.EarsOptionsFromConfig(cfg.Ears))
	player := o.player
	if player == nil {
		player = speech.NewCommandPlayer(cfg.Voice.PlayerCommand)
	}
	m.Voice = speech.NewVoice(m.Providers.TTS, player, cfg.Voice.QueueSize)
	m.Voice.SetMuteSignal(m.Ears.MuteSignal())
	m.Voice.Attach(m.Bus)
	m.Bus.On(events.KindSound, m.onSound)

	// 6. Skills
	if cfg.Skills.Enabled {
		m.Skills = skills.NewRegistry(cfg.Paths.SkillsDir(), skills.NewLoader(cfg.Skills.AllowNetwork), m.Tools, m.Bus)
		if _, err := m.Skills.ScanDir(ctx); err != nil {
			logging.BootWarn("skills scan failed: %v", err)
		}
		if cfg.Skills.Watch {
			m.Watcher = skills.NewWatcher(m.Skills, cfg.Skills.GetDebounce())
		}
	}

	// 7. Global workspace. Registration order breaks saliency ties.
	m.Workspace = gwt.NewGlobalWorkspace(cfg.Workspace.HistorySize)
	m.Perception = gwt.NewPerceptionModule(m.Prediction, cfg.Workspace.SaliencyScale, cfg.Workspace.SaliencyThreshold)
	study := gwt.NewStudyModule(m.Learner)
	agentic := gwt.NewAgenticModule(m.Brain.Agent(), gwt.GitHubLearnerTool)
	m.Tasks = []*gwt.TaskModule{study, agentic}
	m.Workspace.RegisterModule(m.Perception)
	m.Workspace.RegisterModule(gwt.NewExecutiveModule(m.Metacognition, m.Tools))
	m.Workspace.RegisterModule(study)
	m.Workspace.RegisterModule(agentic)

	m.updateSenses()

	// 8. Restore living state
	m.Lifecycle = lifecycle.Load(cfg.Paths.StatePath())
	m.WakeUp = m.Lifecycle.OnBoot(m.components())

	logging.Boot("mind ready: %d tools, %d modules, %s", m.Tools.Count(), len(m.Workspace.Modules()), m.Lifecycle.Summary())
	return m, nil
}

// RegisterTools installs the built-in tools into reg. mem and self may be nil
// when the caller only needs the schemas.
func RegisterTools(reg *tools.Registry, cfg *config.Config, mem memory.Memory, self sysinfo.Introspector, learner *research.GitHubLearner) error {
	if cfg.Tools.ShellEnabled {
		if err := shell.RegisterAll(reg, cfg.Tools.GetShellTimeout()); err != nil {
			return fmt.Errorf("failed to register shell tools: %w", err)
		}
	}
	fetcher := &research.Fetcher{Timeout: cfg.Tools.GetWebFetchTimeout()}
	if err := research.RegisterAll(reg, fetcher, learner); err != nil {
		return fmt.Errorf("failed to register research tools: %w", err)
	}
	if err := memory.RegisterAll(reg, mem); err != nil {
		return fmt.Errorf("failed to register memory tools: %w", err)
	}
	if err := sysinfo.RegisterAll(reg, sysinfo.NewStatus(cfg.Paths.DataDir, self)); err != nil {
		return fmt.Errorf("failed to register sysinfo tools: %w", err)
	}
	return nil
}

func (m *Mind) updateSenses() {
	m.Self.UpdateSenses(func(s *selfmodel.SensoryState) {
		s.MicOnline = m.capture != nil
		s.LLMReady = m.Providers.LLM.Len() > 0
		s.STTReady = m.Providers.STT.Len() > 0
		s.TTSReady = m.Providers.TTS.Len() > 0
		s.ActiveProviders["llm"] = primaryOf(m.Providers.LLM)
		s.ActiveProviders["stt"] = primaryOf(m.Providers.STT)
		s.ActiveProviders["tts"] = primaryOf(m.Providers.TTS)
	})
}

func primaryOf[T providers.Identified](c *providers.Chain[T]) string {
	p, err := c.Get()
	if err != nil {
		return ""
	}
	return p.ID()
}

func (m *Mind) components() lifecycle.Components {
	return lifecycle.Components{
		Self:          m.Self,
		Desires:       m.Desires,
		Awareness:     m.Awareness,
		Metacognition: m.Metacognition,
	}
}

// SaveState writes state.json without shutting down.
func (m *Mind) SaveState() error {
	return m.Lifecycle.SavePeriodic(m.components())
}

// onSound nudges desires for every classified sound and reacts at once to
// urgent ones.
func (m *Mind) onSound(_ context.Context, ev events.Event) error {
	sound, ok := ev.(events.SoundEvent)
	if !ok {
		return nil
	}
	m.Desires.OnSound(sound.Label)

	reaction, urgent := urgentSounds[strings.ToLower(strings.TrimSpace(sound.Label))]
	if !urgent {
		return nil
	}
	m.Awareness.TriggerAlert("sound:" + sound.Label)
	if m.Voice.IsSpeaking() {
		return nil
	}
	return m.Voice.Say(reaction)
}
