package gwt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"enton/internal/logging"
)

// StudyRunner studies a topic (e.g. by summarizing GitHub repositories).
type StudyRunner interface {
	Study(ctx context.Context, topic string) (string, error)
}

// Thinker answers a prompt; satisfied by the brain.
type Thinker interface {
	Think(ctx context.Context, prompt, system string) (string, error)
}

// job is background work started from an intention.
type job struct {
	announce string
	saliency float64
	run      func(ctx context.Context) string
}

// TaskModule turns intentions into background work. While the work runs the
// module stays silent; its result is then proposed on every tick until it
// becomes the workspace content.
type TaskModule struct {
	name         string
	resultPrefix string
	resultLen    int
	resultMeta   map[string]interface{}
	accept       func(msg *BroadcastMessage) (job, bool)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	busy    bool
	pending *string
}

func newTaskModule(name, prefix string, n int, meta map[string]interface{}, accept func(*BroadcastMessage) (job, bool)) *TaskModule {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskModule{
		name:         name,
		resultPrefix: prefix,
		resultLen:    n,
		resultMeta:   meta,
		accept:       accept,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// NewStudyModule reacts to GitHub study intentions with runner.
func NewStudyModule(runner StudyRunner) *TaskModule {
	return newTaskModule("github_skill", "Study Result: ", 100, nil, func(msg *BroadcastMessage) (job, bool) {
		topic, ok := studyTopic(msg)
		if !ok {
			return job{}, false
		}
		return job{
			announce: "Starting study on " + topic,
			saliency: 0.8,
			run: func(ctx context.Context) string {
				logging.Workspace("study started: %s", topic)
				res, err := runner.Study(ctx, topic)
				if err != nil {
					logging.WorkspaceError("study of %s failed: %v", topic, err)
					return fmt.Sprintf("Error studying %s: %v", topic, err)
				}
				return res
			},
		}, true
	})
}

func studyTopic(msg *BroadcastMessage) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(msg.Content, IntentStudyGitHub):
		rest = strings.TrimPrefix(msg.Content, IntentStudyGitHub)
	case strings.HasPrefix(msg.Content, IntentUseTool+GitHubLearnerTool+":"):
		rest = strings.TrimPrefix(msg.Content, IntentUseTool+GitHubLearnerTool+":")
		rest = strings.TrimPrefix(rest, "Study ")
	default:
		return "", false
	}
	topic := msg.Str("topic")
	if topic == "" {
		topic = strings.TrimSpace(rest)
	}
	return topic, topic != ""
}

// NewAgenticModule executes tool and task intentions through the brain.
// Tools listed in skip are left to other modules.
func NewAgenticModule(brain Thinker, skip ...string) *TaskModule {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	meta := map[string]interface{}{"type": "action_result"}
	return newTaskModule("agentic_module", "Action Result: ", 200, meta, func(msg *BroadcastMessage) (job, bool) {
		switch {
		case strings.HasPrefix(msg.Content, IntentUseTool):
			parts := strings.SplitN(msg.Content, ":", 3)
			if len(parts) != 3 || skipped[parts[1]] {
				return job{}, false
			}
			tool, instruction := parts[1], parts[2]
			return job{
				announce: fmt.Sprintf("Executing tool %s...", tool),
				saliency: 0.9,
				run: func(ctx context.Context) string {
					prompt := fmt.Sprintf("Use the tool '%s' to: %s", tool, instruction)
					res, err := brain.Think(ctx, prompt, "")
					if err != nil {
						logging.WorkspaceError("tool intention %s failed: %v", tool, err)
						return fmt.Sprintf("Error using %s: %v", tool, err)
					}
					return fmt.Sprintf("Tool %s output: %s", tool, res)
				},
			}, true

		case strings.HasPrefix(msg.Content, IntentAgentic):
			instruction := msg.Str("instruction")
			if instruction == "" {
				instruction = strings.TrimPrefix(msg.Content, IntentAgentic)
			}
			return job{
				announce: fmt.Sprintf("Starting agentic task: %s...", truncate(instruction, 50)),
				saliency: 0.9,
				run: func(ctx context.Context) string {
					res, err := brain.Think(ctx, instruction, "")
					if err != nil {
						logging.WorkspaceError("agentic task failed: %v", err)
						return fmt.Sprintf("Error executing task: %v", err)
					}
					return "Task result: " + res
				},
			}, true
		}
		return job{}, false
	})
}

func (t *TaskModule) Name() string { return t.name }

func (t *TaskModule) RunStep(ctx *BroadcastMessage) *BroadcastMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	// The result is offered every tick until it wins; only then is it
	// dropped.
	if t.pending != nil && ctx != nil && ctx.Source == t.name && ctx.Modality == ModalityMemoryRecall {
		t.pending = nil
		return nil
	}
	if t.pending != nil {
		full := *t.pending
		meta := map[string]interface{}{"full_text": full}
		for k, v := range t.resultMeta {
			meta[k] = v
		}
		summary := truncate(full, t.resultLen)
		if summary != full {
			summary += "..."
		}
		return NewMessage(t.name, ModalityMemoryRecall, t.resultPrefix+summary, 1.0, meta)
	}

	if t.busy || ctx == nil || ctx.Modality != ModalityIntention {
		return nil
	}
	j, ok := t.accept(ctx)
	if !ok {
		return nil
	}
	if t.ctx.Err() != nil {
		return nil
	}

	t.busy = true
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		res := j.run(t.ctx)
		t.mu.Lock()
		t.pending = &res
		t.busy = false
		t.mu.Unlock()
	}()

	return NewMessage(t.name, ModalityInnerSpeech, j.announce, j.saliency, nil)
}

// IsBusy reports whether background work is running.
func (t *TaskModule) IsBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Close cancels running work and waits for it to finish.
func (t *TaskModule) Close() {
	t.cancel()
	t.wg.Wait()
}
