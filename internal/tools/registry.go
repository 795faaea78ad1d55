package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"enton/internal/logging"
	"enton/internal/providers"
)

// Registry holds all available tools and provides lookup functionality.
// It is thread-safe; skills register and unregister at runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.ToolsDebug("Registered tool: %s (category=%s)", tool.Name, tool.Category)
	return nil
}

// Replace registers tool, swapping out any tool with the same name.
// It reports whether a previous version was replaced.
func (r *Registry) Replace(tool *Tool) (bool, error) {
	if err := tool.Validate(); err != nil {
		return false, fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	_, existed := r.tools[tool.Name]
	r.tools[tool.Name] = tool
	r.mu.Unlock()

	if existed {
		logging.Tools("Replaced tool: %s", tool.Name)
	}
	return existed, nil
}

// Unregister removes a tool. It reports whether the tool existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	logging.ToolsDebug("Unregistered tool: %s", name)
	return true
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// GetByCategory returns all tools in a category, sorted by name.
func (r *Registry) GetByCategory(category ToolCategory) []*Tool {
	var out []*Tool
	for _, t := range r.All() {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name with the given arguments.
// Returns ErrToolNotFound if the tool doesn't exist.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool runs a specific tool with the given arguments. A panicking
// tool is reported as an error.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args map[string]any) (res *ToolResult, err error) {
	start := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	if err := validateArgs(tool, args); err != nil {
		return &ToolResult{
			ToolName:   tool.Name,
			Error:      err,
			DurationMs: time.Since(start).Milliseconds(),
		}, err
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, p)
			res = &ToolResult{ToolName: tool.Name, Error: err, DurationMs: time.Since(start).Milliseconds()}
			logging.ToolsError("%v", err)
		}
	}()

	logging.ToolsDebug("Executing tool: %s", tool.Name)
	result, err := tool.Execute(ctx, args)

	duration := time.Since(start)
	logging.ToolsDebug("Tool %s completed in %v (success=%v)", tool.Name, duration, err == nil)

	ev := logging.AuditEvent{
		EventType:  logging.AuditToolExec,
		Source:     "tools",
		Target:     tool.Name,
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	logging.Audit(ev)

	return &ToolResult{
		ToolName:   tool.Name,
		Result:     result,
		Error:      err,
		DurationMs: duration.Milliseconds(),
	}, err
}

// validateArgs checks that all required arguments are present.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}

// FunctionSchema renders the tool's function-calling descriptor.
func (t *Tool) FunctionSchema() FunctionSchema {
	props := t.Schema.Properties
	if props == nil {
		props = map[string]Property{}
	}
	required := t.Schema.Required
	if required == nil {
		required = []string{}
	}
	return FunctionSchema{
		Type: "function",
		Function: FunctionSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters: ParametersSchema{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		},
	}
}

// Schemas returns the function descriptors of all tools, sorted by name.
func (r *Registry) Schemas() []FunctionSchema {
	all := r.All()
	out := make([]FunctionSchema, len(all))
	for i, t := range all {
		out[i] = t.FunctionSchema()
	}
	return out
}

// Definitions returns all tools in the form providers send to models.
func (r *Registry) Definitions() []providers.ToolDefinition {
	all := r.All()
	out := make([]providers.ToolDefinition, len(all))
	for i, t := range all {
		props := make(map[string]interface{}, len(t.Schema.Properties))
		for name, p := range t.Schema.Properties {
			props[name] = propertyMap(p)
		}
		required := make([]interface{}, len(t.Schema.Required))
		for j, name := range t.Schema.Required {
			required[j] = name
		}
		out[i] = providers.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		}
	}
	return out
}

func propertyMap(p Property) map[string]interface{} {
	m := map[string]interface{}{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.Default != nil {
		m["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	if p.Items != nil {
		m["items"] = map[string]interface{}{"type": p.Items.Type}
	}
	return m
}
