// Package brain turns prompts into answers using the LLM provider chain.
//
// Every call starts at the primary provider, retried through the error
// loop-back when one is attached, and falls back along the chain when the
// primary gives up. Conversation history is a bounded FIFO appended only
// after a successful answer. ThinkAgent adds a bounded tool-calling loop on
// top of the same fallback machinery.
package brain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"enton/internal/config"
	"enton/internal/errorloop"
	"enton/internal/logging"
	"enton/internal/metacognition"
	"enton/internal/providers"
	"enton/internal/tools"
)

var (
	// ErrAllProvidersFailed wraps the failure of every provider in the chain.
	ErrAllProvidersFailed = errors.New("all LLM providers failed")

	// ErrMaxTurns is returned when the model keeps calling tools past the
	// turn limit.
	ErrMaxTurns = errors.New("tool loop exceeded max turns")
)

const scenePrompt = "Describe what you see briefly."

var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ToolRunner is the part of the tool registry the agent loop needs.
type ToolRunner interface {
	Definitions() []providers.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (*tools.ToolResult, error)
}

// Tracer records reasoning traces and picks the strategy.
type Tracer interface {
	BeginTrace(query, strategy string) *metacognition.ReasoningTrace
	EndTrace(t *metacognition.ReasoningTrace, response, provider string, err error) metacognition.ReasoningTrace
	ShouldUseTools(query string) bool
}

// Options configures a Brain.
type Options struct {
	MemorySize   int
	MaxTurns     int
	SystemPrompt string
	// Timeout bounds one whole Think/ThinkAgent call. Zero means none.
	Timeout time.Duration
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{MemorySize: 20, MaxTurns: 5}
}

// OptionsFromConfig maps the brain config section onto Options.
func OptionsFromConfig(c config.BrainConfig) Options {
	o := DefaultOptions()
	if c.MemorySize > 0 {
		o.MemorySize = c.MemorySize
	}
	if c.MaxTurns > 0 {
		o.MaxTurns = c.MaxTurns
	}
	o.SystemPrompt = c.SystemPrompt
	o.Timeout = c.GetTimeout()
	return o
}

// Brain is safe for concurrent use.
type Brain struct {
	llms *providers.Chain[providers.LLM]
	opts Options

	tools ToolRunner
	meta  Tracer
	loop  *errorloop.LoopBack

	mu      sync.Mutex
	history []providers.Message
}

// New creates a Brain over the given chain.
func New(llms *providers.Chain[providers.LLM], opts Options) *Brain {
	def := DefaultOptions()
	if opts.MemorySize <= 0 {
		opts.MemorySize = def.MemorySize
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = def.MaxTurns
	}
	return &Brain{llms: llms, opts: opts}
}

// SetTools attaches the tool registry used by ThinkAgent.
func (b *Brain) SetTools(t ToolRunner) { b.tools = t }

// SetTracer attaches the metacognition engine.
func (b *Brain) SetTracer(t Tracer) { b.meta = t }

// SetErrorLoop routes primary-provider calls through the loop-back.
func (b *Brain) SetErrorLoop(l *errorloop.LoopBack) { b.loop = l }

// Providers returns the LLM chain.
func (b *Brain) Providers() *providers.Chain[providers.LLM] { return b.llms }

// Respond answers a user utterance, using the tool loop when the query looks
// like it needs one.
func (b *Brain) Respond(ctx context.Context, prompt, system string) (string, error) {
	if b.tools != nil && b.meta != nil && b.meta.ShouldUseTools(prompt) {
		return b.ThinkAgent(ctx, prompt, system)
	}
	return b.Think(ctx, prompt, system)
}

// Think answers prompt without tools.
func (b *Brain) Think(ctx context.Context, prompt, system string) (string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	system = b.system(system)

	trace := b.begin(prompt, metacognition.StrategyDirect)
	history := b.History()

	var raw string
	provider, err := b.call(ctx, prompt, func(ctx context.Context, llm providers.LLM, p string) error {
		out, err := llm.Generate(ctx, p, system, history)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	resp := cleanResponse(raw)
	b.end(trace, resp, provider, err)
	if err != nil {
		return "", err
	}

	b.remember(prompt, resp)
	logging.Brain("Brain [%s]: %s", provider, cut(resp, 80))
	return resp, nil
}

// ThinkAgent answers prompt, letting the model call registered tools. Each
// tool result is fed back as a tool turn; the loop stops at MaxTurns.
func (b *Brain) ThinkAgent(ctx context.Context, prompt, system string) (string, error) {
	if b.tools == nil {
		return b.Think(ctx, prompt, system)
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	system = b.system(system)

	trace := b.begin(prompt, metacognition.StrategyAgent)
	defs := b.tools.Definitions()
	messages := append(b.History(), providers.Message{Role: providers.RoleUser, Content: prompt})

	var provider string
	for turn := 1; turn <= b.opts.MaxTurns; turn++ {
		logging.BrainDebug("agent turn %d/%d: %d messages, %d tools", turn, b.opts.MaxTurns, len(messages), len(defs))

		var resp providers.Response
		var err error
		provider, err = b.call(ctx, prompt, func(ctx context.Context, llm providers.LLM, _ string) error {
			out, err := llm.GenerateWithTools(ctx, messages, system, defs)
			if err != nil {
				return err
			}
			resp = out
			return nil
		})
		if err != nil {
			b.end(trace, "", provider, err)
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			text := cleanResponse(resp.Text)
			b.end(trace, text, provider, nil)
			b.remember(prompt, text)
			logging.Brain("Brain agent [%s] answered after %d turn(s): %s", provider, turn, cut(text, 80))
			return text, nil
		}

		messages = append(messages, providers.Message{
			Role:      providers.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			messages = append(messages, providers.Message{
				Role:       providers.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    b.runTool(ctx, call),
			})
		}
	}

	err := fmt.Errorf("%w (%d)", ErrMaxTurns, b.opts.MaxTurns)
	b.end(trace, "", provider, err)
	logging.BrainWarn("agent gave up: %v", err)
	return "", err
}

func (b *Brain) runTool(ctx context.Context, call providers.ToolCall) string {
	logging.Brain("tool call: %s", call.Name)
	res, err := b.tools.Execute(ctx, call.Name, call.Input)
	if err != nil {
		logging.BrainWarn("tool %s failed: %v", call.Name, err)
		return "Error: " + err.Error()
	}
	return res.Result
}

// DescribeScene asks a vision-capable provider about an image. It returns ""
// when every provider fails.
func (b *Brain) DescribeScene(ctx context.Context, image []byte, mimeType string) string {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	trace := b.begin(scenePrompt, metacognition.StrategyVLM)
	var out string
	provider, err := b.call(ctx, scenePrompt, func(ctx context.Context, llm providers.LLM, p string) error {
		text, err := llm.GenerateWithImage(ctx, p, image, mimeType)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	out = cleanResponse(out)
	b.end(trace, out, provider, err)
	if err != nil {
		logging.BrainWarn("vision failed: %v", err)
		return ""
	}
	return out
}

// callFunc performs one request against llm with prompt p.
type callFunc func(ctx context.Context, llm providers.LLM, p string) error

// call runs fn on the selected provider (through the error loop when
// attached) and then walks the fallback chain. It returns the id of the
// provider that succeeded.
func (b *Brain) call(ctx context.Context, prompt string, fn callFunc) (string, error) {
	primary, err := b.llms.Get()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, err)
	}
	id := primary.ID()

	var primaryErr error
	if b.loop != nil {
		_, rec := b.loop.Execute(ctx, func(ctx context.Context, p string) (string, error) {
			return "ok", fn(ctx, primary, p)
		}, prompt, id)
		if rec != nil {
			primaryErr = rec.Err
		}
	} else {
		primaryErr = fn(ctx, primary, prompt)
	}
	if primaryErr == nil {
		return id, nil
	}
	logging.BrainWarn("Brain [%s] failed: %v", id, primaryErr)

	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, primaryErr)
	}
	used, err := b.llms.Walk(id, func(llm providers.LLM) error {
		logging.Brain("falling back to %s", llm.ID())
		return fn(ctx, llm, prompt)
	})
	if err != nil {
		if errors.Is(err, providers.ErrNoProvider) {
			return "", fmt.Errorf("%w: %s: %w", ErrAllProvidersFailed, id, primaryErr)
		}
		return "", fmt.Errorf("%w: %s: %w; %w", ErrAllProvidersFailed, id, primaryErr, err)
	}
	return used, nil
}

// History returns a copy of the conversation history.
func (b *Brain) History() []providers.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]providers.Message, len(b.history))
	copy(out, b.history)
	return out
}

// ClearHistory forgets the conversation.
func (b *Brain) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()
}

func (b *Brain) remember(prompt, response string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history,
		providers.Message{Role: providers.RoleUser, Content: prompt},
		providers.Message{Role: providers.RoleAssistant, Content: response},
	)
	if over := len(b.history) - b.opts.MemorySize; over > 0 {
		b.history = append([]providers.Message(nil), b.history[over:]...)
	}
}

func (b *Brain) system(s string) string {
	if s == "" {
		return b.opts.SystemPrompt
	}
	return s
}

func (b *Brain) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.opts.Timeout)
}

func (b *Brain) begin(query, strategy string) *metacognition.ReasoningTrace {
	if b.meta == nil {
		return nil
	}
	return b.meta.BeginTrace(query, strategy)
}

func (b *Brain) end(t *metacognition.ReasoningTrace, response, provider string, err error) {
	if b.meta == nil || t == nil {
		return
	}
	b.meta.EndTrace(t, response, provider, err)
}

// Agent adapts the brain so Think runs the tool loop. Task modules use it to
// act on intentions.
func (b *Brain) Agent() *Agent { return &Agent{b: b} }

// Agent is a Brain whose Think is ThinkAgent.
type Agent struct{ b *Brain }

// Think runs the tool loop.
func (a *Agent) Think(ctx context.Context, prompt, system string) (string, error) {
	return a.b.ThinkAgent(ctx, prompt, system)
}

func cleanResponse(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
