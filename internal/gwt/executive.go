package gwt

import "fmt"

// Metacognition is the part of the metacognitive engine the executive drives.
type Metacognition interface {
	Tick(surprise float64) string
	NextTopic() string
	Boredom() float64
	RelieveBoredom()
}

// ToolLookup reports whether a tool or skill is available.
type ToolLookup interface {
	Has(name string) bool
}

// Intention prefixes understood by the task modules.
const (
	IntentUseTool     = "use_tool:"
	IntentAgentic     = "agentic_task:"
	IntentStudyGitHub = "study_github:"

	// GitHubLearnerTool is the tool the executive prefers when bored.
	GitHubLearnerTool = "github_learner"

	// ActionStudyGitHub is returned by metacognition when boredom peaks.
	ActionStudyGitHub = "study_github"
)

// ExecutiveModule feeds perceived surprise into metacognition and turns
// boredom into study intentions.
type ExecutiveModule struct {
	meta  Metacognition
	tools ToolLookup // may be nil
}

// NewExecutiveModule creates the module. tools may be nil.
func NewExecutiveModule(meta Metacognition, tools ToolLookup) *ExecutiveModule {
	return &ExecutiveModule{meta: meta, tools: tools}
}

func (e *ExecutiveModule) Name() string { return "executive" }

func (e *ExecutiveModule) RunStep(ctx *BroadcastMessage) *BroadcastMessage {
	surprise := 0.5
	if ctx != nil && ctx.Source == "perception" && ctx.Modality == ModalityVision {
		surprise = ctx.Float("surprise", 0.5)
	}

	if e.meta.Tick(surprise) == ActionStudyGitHub {
		// Deciding to study is itself relief; otherwise the intention would
		// be re-issued every tick until the study result arrives.
		e.meta.RelieveBoredom()
		topic := e.meta.NextTopic()
		if e.tools != nil && e.tools.Has(GitHubLearnerTool) {
			return NewMessage(e.Name(), ModalityIntention,
				fmt.Sprintf("%s%s:Study %s", IntentUseTool, GitHubLearnerTool, topic),
				1.0,
				map[string]interface{}{"topic": topic})
		}
		instruction := "Research " + topic
		return NewMessage(e.Name(), ModalityIntention,
			IntentAgentic+instruction,
			1.0,
			map[string]interface{}{"instruction": instruction, "topic": topic})
	}

	if b := e.meta.Boredom(); b > 0.5 {
		return NewMessage(e.Name(), ModalityEmotion, "feeling_bored", b, nil)
	}
	return nil
}
