// Package providers defines the LLM, speech-to-text and text-to-speech
// backends used by the brain, ears and voice, and the fallback chain that
// selects between them.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoProvider is returned when a chain has nothing registered to try.
var ErrNoProvider = errors.New("no provider available")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant turns that requested tools
	ToolCallID string     // tool turns: the call being answered
	Name       string     // tool turns: the tool name
}

// ToolCall is a tool invocation requested by a model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ToolDefinition describes a callable tool to a model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema object
}

// Response is the result of a tool-enabled generation. Either Text or
// ToolCalls (or both) may be set.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// LLM generates text.
type LLM interface {
	ID() string
	Generate(ctx context.Context, prompt, system string, history []Message) (string, error)
	GenerateWithTools(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (Response, error)
	GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// STT turns speech into text.
type STT interface {
	ID() string
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// TTS turns text into speech.
type TTS interface {
	ID() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Identified is anything with a provider id.
type Identified interface {
	ID() string
}

// Chain holds the providers of one kind with a primary and a static
// fallback order. Register everything before concurrent use.
type Chain[T Identified] struct {
	primary    string
	fallback   []string
	items      map[string]T
	registered []string
}

// NewChain creates an empty chain.
func NewChain[T Identified](primary string, fallback []string) *Chain[T] {
	return &Chain[T]{
		primary:  primary,
		fallback: append([]string(nil), fallback...),
		items:    make(map[string]T),
	}
}

// Register adds p under p.ID(), replacing any provider with the same id.
func (c *Chain[T]) Register(p T) {
	id := p.ID()
	if _, ok := c.items[id]; !ok {
		c.registered = append(c.registered, id)
	}
	c.items[id] = p
}

// Len is the number of registered providers.
func (c *Chain[T]) Len() int { return len(c.items) }

// IDs returns registered ids in registration order.
func (c *Chain[T]) IDs() []string { return append([]string(nil), c.registered...) }

// Primary returns the configured primary id.
func (c *Chain[T]) Primary() string { return c.primary }

// Lookup returns the provider registered under id.
func (c *Chain[T]) Lookup(id string) (T, bool) {
	p, ok := c.items[id]
	return p, ok
}

// Get returns the primary provider if registered, else the first one
// registered.
func (c *Chain[T]) Get() (T, error) {
	if p, ok := c.items[c.primary]; ok {
		return p, nil
	}
	if len(c.registered) > 0 {
		return c.items[c.registered[0]], nil
	}
	var zero T
	return zero, ErrNoProvider
}

// Walk calls fn for each provider in fallback order, skipping failed and
// ids that are not registered, until fn succeeds. It returns the id that
// succeeded. When every candidate fails the errors are joined; when there
// was no candidate at all the error is ErrNoProvider.
func (c *Chain[T]) Walk(failed string, fn func(T) error) (string, error) {
	var errs []error
	for _, id := range c.fallback {
		if id == failed {
			continue
		}
		p, ok := c.items[id]
		if !ok {
			continue
		}
		err := fn(p)
		if err == nil {
			return id, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
	}
	if len(errs) == 0 {
		return "", ErrNoProvider
	}
	return "", errors.Join(errs...)
}
