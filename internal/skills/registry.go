package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"enton/internal/events"
	"enton/internal/logging"
	"enton/internal/tools"
)

// Emitter publishes events; satisfied by *events.Bus.
type Emitter interface {
	Emit(ctx context.Context, ev events.Event) error
}

// ToolSink publishes loaded skills as tools; satisfied by *tools.Registry.
type ToolSink interface {
	Replace(tool *tools.Tool) (bool, error)
	Unregister(name string) bool
}

// Skill is a loaded skill as seen by status commands.
type Skill struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	LoadedAt    time.Time `json:"loaded_at"`
	Successes   int       `json:"successes"`
	Failures    int       `json:"failures"`
}

// Registry owns the skills directory and keeps the tool registry in sync
// with it.
type Registry struct {
	dir    string
	loader *Loader
	tools  ToolSink
	bus    Emitter

	mu     sync.Mutex
	skills map[string]*Skill // by tool name
	byPath map[string]string // file -> tool name
	now    func() time.Time
}

// NewRegistry creates a registry for dir. bus may be nil.
func NewRegistry(dir string, loader *Loader, reg ToolSink, bus Emitter) *Registry {
	return &Registry{
		dir:    dir,
		loader: loader,
		tools:  reg,
		bus:    bus,
		skills: make(map[string]*Skill),
		byPath: make(map[string]string),
		now:    time.Now,
	}
}

// Dir returns the watched directory.
func (r *Registry) Dir() string { return r.dir }

// ScanDir loads every skill file already in the directory, in name order.
func (r *Registry) ScanDir(ctx context.Context) ([]LoadResult, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create skills dir: %w", err)
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var results []LoadResult
	for _, e := range entries {
		if e.IsDir() || !IsSkillFile(e.Name()) {
			continue
		}
		results = append(results, r.LoadFile(ctx, filepath.Join(r.dir, e.Name())))
	}
	logging.Skills("scanned %s: %d skill files", r.dir, len(results))
	return results, nil
}

// LoadFile interprets path and, when it yields a skill, registers it,
// replacing any previous version.
func (r *Registry) LoadFile(ctx context.Context, path string) LoadResult {
	res := r.loader.Load(path)
	if res.Status != Loaded {
		logging.SkillsWarn("rejected %s (%s): %v", filepath.Base(path), res.Status, res.Err)
		logging.Audit(logging.AuditEvent{
			EventType: logging.AuditSkillRejected,
			Source:    "skills",
			Target:    path,
			Error:     errString(res.Err),
			Fields:    map[string]interface{}{"status": res.Status.String()},
		})
		r.emit(ctx, events.SkillRejected, res.Name, fmt.Sprintf("%s: %v", res.Status, res.Err))
		return res
	}

	// A failed Replace must leave the previous version untouched.
	res.Tool.Execute = r.tracked(res.Name, res.Tool.Execute)
	r.mu.Lock()
	replaced, err := r.tools.Replace(res.Tool)
	if err != nil {
		r.mu.Unlock()
		logging.SkillsError("failed to register %s from %s: %v", res.Name, filepath.Base(path), err)
		r.emit(ctx, events.SkillRejected, res.Name, err.Error())
		res.Status, res.Tool, res.Err = NoCapability, nil, err
		return res
	}
	if prev, ok := r.byPath[path]; ok && prev != res.Name {
		// The file was renamed internally; drop the old tool.
		r.tools.Unregister(prev)
		delete(r.skills, prev)
	}
	if prevPath := r.pathOf(res.Name); prevPath != "" && prevPath != path {
		logging.SkillsWarn("skill %s from %s replaces the one from %s", res.Name, path, prevPath)
		delete(r.byPath, prevPath)
	}
	r.skills[res.Name] = &Skill{Name: res.Name, Path: path, Description: res.Tool.Description, LoadedAt: r.now()}
	r.byPath[path] = res.Name
	r.mu.Unlock()

	verb := "loaded"
	if replaced {
		verb = "reloaded"
	}
	logging.Skills("%s skill %s from %s", verb, res.Name, filepath.Base(path))
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditSkillLoaded,
		Source:    "skills",
		Target:    res.Name,
		Success:   true,
		Message:   verb,
	})
	r.emit(ctx, events.SkillLoaded, res.Name, path)
	return res
}

// Unload removes the skill called name. It reports whether it was loaded.
func (r *Registry) Unload(ctx context.Context, name string) bool {
	r.mu.Lock()
	sk, ok := r.skills[name]
	if ok {
		delete(r.skills, name)
		delete(r.byPath, sk.Path)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	r.tools.Unregister(name)
	logging.Skills("unloaded skill %s", name)
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditSkillRemoved,
		Source:    "skills",
		Target:    name,
		Success:   true,
	})
	r.emit(ctx, events.SkillUnloaded, name, sk.Path)
	return true
}

// UnloadPath removes whatever skill was loaded from path.
func (r *Registry) UnloadPath(ctx context.Context, path string) bool {
	r.mu.Lock()
	name, ok := r.byPath[path]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return r.Unload(ctx, name)
}

// Has reports whether a skill named name is loaded.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.skills[name]
	return ok
}

// List returns loaded skills sorted by name.
func (r *Registry) List() []Skill {
	r.mu.Lock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, *s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// tracked counts successes and failures of a skill's executions.
func (r *Registry) tracked(name string, fn tools.ExecuteFunc) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		out, err := fn(ctx, args)
		r.mu.Lock()
		if sk, ok := r.skills[name]; ok {
			if err != nil {
				sk.Failures++
			} else {
				sk.Successes++
			}
		}
		r.mu.Unlock()
		return out, err
	}
}

// pathOf must be called with r.mu held.
func (r *Registry) pathOf(name string) string {
	if sk, ok := r.skills[name]; ok {
		return sk.Path
	}
	return ""
}

func (r *Registry) emit(ctx context.Context, action, name, detail string) {
	if r.bus == nil {
		return
	}
	ev := events.SkillEvent{Base: events.NewBase(), Action: action, Name: name, Detail: detail}
	if err := r.bus.Emit(ctx, ev); err != nil {
		logging.SkillsDebug("skill event dropped: %v", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
