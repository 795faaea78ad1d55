// Package tools holds the registry of actions the brain can invoke through
// function calling. Built-in tools live in subpackages (shell, research,
// memory, sysinfo); runtime skills register here as well.
package tools

import (
	"context"
)

// ToolCategory groups tools for listing and filtering.
type ToolCategory string

const (
	// CategorySystem covers shell access and host status.
	CategorySystem ToolCategory = "/system"

	// CategoryResearch covers web fetching and GitHub study.
	CategoryResearch ToolCategory = "/research"

	// CategoryMemory covers episodic remember/recall.
	CategoryMemory ToolCategory = "/memory"

	// CategorySkill is used by tools loaded from skill files.
	CategorySkill ToolCategory = "/skill"

	CategoryGeneral ToolCategory = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is an action the brain can call.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does to the model.
	Description string

	Category ToolCategory

	Execute ExecuteFunc

	Schema ToolSchema

	// Source records where the tool came from ("builtin" or a skill file).
	Source string
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	ToolName   string
	Result     string
	Error      error
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}

// FunctionSchema is the exported function-calling descriptor of a tool:
// {type:"function", function:{name, description, parameters}}.
type FunctionSchema struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec is the function part of a FunctionSchema.
type FunctionSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  ParametersSchema `json:"parameters"`
}

// ParametersSchema is a JSON schema object.
type ParametersSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// StringArg returns args[key] as a string.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg returns args[key] as an int. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
