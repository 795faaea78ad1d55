package gwt

import (
	"fmt"
	"sync"

	"enton/internal/logging"
)

// CognitiveModule is an unconscious process that sees the current workspace
// content and may propose a new message. ctx is nil before the first winner.
type CognitiveModule interface {
	Name() string
	RunStep(ctx *BroadcastMessage) *BroadcastMessage
}

// DefaultHistorySize bounds the broadcast history.
const DefaultHistorySize = 100

// GlobalWorkspace runs the module competition. Tick is called from a single
// loop; accessors are safe from other goroutines.
type GlobalWorkspace struct {
	mu          sync.RWMutex
	modules     []CognitiveModule
	current     *BroadcastMessage
	history     []*BroadcastMessage
	historySize int
	steps       int
}

// NewGlobalWorkspace creates an empty workspace. historySize <= 0 uses
// DefaultHistorySize.
func NewGlobalWorkspace(historySize int) *GlobalWorkspace {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &GlobalWorkspace{historySize: historySize}
}

// RegisterModule appends m to the competition. Registration order breaks
// saliency ties.
func (w *GlobalWorkspace) RegisterModule(m CognitiveModule) {
	w.mu.Lock()
	w.modules = append(w.modules, m)
	w.mu.Unlock()
	logging.Workspace("module registered: %s", m.Name())
}

// Tick runs one cognitive cycle: every module sees the current content, the
// most salient proposal wins and becomes current. It returns nil when no
// module proposed anything; the current content is then kept.
func (w *GlobalWorkspace) Tick() *BroadcastMessage {
	w.mu.RLock()
	modules := append([]CognitiveModule(nil), w.modules...)
	current := w.current
	w.mu.RUnlock()

	var winner *BroadcastMessage
	for _, m := range modules {
		msg := w.step(m, current)
		if msg == nil {
			continue
		}
		if winner == nil || msg.Saliency > winner.Saliency {
			winner = msg
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps++
	if winner == nil {
		return nil
	}

	w.current = winner
	w.history = append(w.history, winner)
	if over := len(w.history) - w.historySize; over > 0 {
		w.history = append(w.history[:0:0], w.history[over:]...)
	}

	logging.WorkspaceDebug("tick %d winner %s", w.steps, winner)
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditBroadcast,
		Source:    "workspace",
		Target:    winner.Source,
		Success:   true,
		Message:   winner.Content,
		Fields:    map[string]interface{}{"step": w.steps, "saliency": winner.Saliency},
	})
	return winner
}

func (w *GlobalWorkspace) step(m CognitiveModule, ctx *BroadcastMessage) (msg *BroadcastMessage) {
	defer func() {
		if r := recover(); r != nil {
			logging.WorkspaceError("module %s panicked: %v", m.Name(), r)
			msg = nil
		}
	}()
	return m.RunStep(ctx)
}

// Current returns the content currently holding attention, or nil.
func (w *GlobalWorkspace) Current() *BroadcastMessage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// History returns a copy of recent winners, oldest first.
func (w *GlobalWorkspace) History() []*BroadcastMessage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*BroadcastMessage(nil), w.history...)
}

// StepCount returns the number of ticks run, including silent ones.
func (w *GlobalWorkspace) StepCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.steps
}

// Modules returns registered module names in order.
func (w *GlobalWorkspace) Modules() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, len(w.modules))
	for i, m := range w.modules {
		names[i] = m.Name()
	}
	return names
}

// Summary is a one-line status for logs and the CLI.
func (w *GlobalWorkspace) Summary() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cur := "silent"
	if w.current != nil {
		cur = w.current.String()
	}
	return fmt.Sprintf("GWT step %d, %d modules, current: %s", w.steps, len(w.modules), cur)
}
