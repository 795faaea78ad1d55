// Package errorloop retries failing LLM calls with the error fed back into
// the prompt, so the model can correct its approach before the caller falls
// back to another provider.
package errorloop

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"enton/internal/config"
	"enton/internal/logging"
)

// ErrorRecord is one captured failure.
type ErrorRecord struct {
	ErrorType     string
	Message       string
	Provider      string
	PromptSnippet string
	RetryAttempt  int
	Timestamp     time.Time
	Resolved      bool
	Resolution    string
	Err           error `json:"-"`
}

// Summary renders the record on one line.
func (r ErrorRecord) Summary() string {
	return fmt.Sprintf("[%s] %s (provider=%s, attempt=%d)", r.ErrorType, cut(r.Message, 100), r.Provider, r.RetryAttempt)
}

// ContextSink receives error notes so later prompts can see them.
type ContextSink interface {
	Set(key, content, category string, priority float64, ttl time.Duration)
}

// CallFunc performs one attempt with the given prompt.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// Attempt is one provider tried by ExecuteWithFallback.
type Attempt struct {
	ProviderID string
	Prompt     string
	Call       CallFunc
}

const (
	historyCap      = 50
	similarWindow   = 5 * time.Minute
	similarAlertMin = 3
)

// Options configures a LoopBack.
type Options struct {
	MaxTotalRetries   int
	ErrorTTL          time.Duration
	DegradedThreshold int
	Context           ContextSink
	Now               func() time.Time
}

// DefaultOptions returns the stock retry policy.
func DefaultOptions() Options {
	return Options{MaxTotalRetries: 3, ErrorTTL: 120 * time.Second, DegradedThreshold: 5}
}

// OptionsFromConfig maps the errors config section onto Options.
func OptionsFromConfig(c config.ErrorsConfig, sink ContextSink) Options {
	o := DefaultOptions()
	if c.MaxTotalRetries > 0 {
		o.MaxTotalRetries = c.MaxTotalRetries
	}
	if c.DegradedThreshold > 0 {
		o.DegradedThreshold = c.DegradedThreshold
	}
	o.ErrorTTL = c.GetErrorTTL()
	o.Context = sink
	return o
}

// LoopBack is safe for concurrent use.
type LoopBack struct {
	mu          sync.Mutex
	history     []*ErrorRecord
	consecutive int

	opts Options
}

// New creates a LoopBack.
func New(opts Options) *LoopBack {
	def := DefaultOptions()
	if opts.MaxTotalRetries <= 0 {
		opts.MaxTotalRetries = def.MaxTotalRetries
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = def.ErrorTTL
	}
	if opts.DegradedThreshold <= 0 {
		opts.DegradedThreshold = def.DegradedThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LoopBack{opts: opts}
}

// Execute calls fn up to MaxTotalRetries times. After a failure the prompt is
// rebuilt around the error and retry hints. It returns the result and nil on
// success, or "" and the last error record once every attempt failed.
func (l *LoopBack) Execute(ctx context.Context, fn CallFunc, prompt, providerID string) (string, *ErrorRecord) {
	var last *ErrorRecord
	maxAttempts := l.opts.MaxTotalRetries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil && last != nil {
			break
		}
		p := prompt
		if last != nil {
			p = l.loopbackPrompt(prompt, last, attempt)
		}

		result, err := fn(ctx, p)
		if err == nil {
			l.mu.Lock()
			l.consecutive = 0
			if last != nil {
				last.Resolved = true
				last.Resolution = fmt.Sprintf("Resolved on attempt %d", attempt)
			}
			l.mu.Unlock()
			if last != nil {
				l.inject(fmt.Sprintf("error_resolved_%d", attempt), fmt.Sprintf("Previous error resolved on attempt %d", attempt), 0.3)
				logging.Errors("loop-back resolved on attempt %d (provider=%s)", attempt, providerID)
				logging.Audit(logging.AuditEvent{
					EventType: logging.AuditErrorRecovery,
					Source:    "errorloop",
					Target:    providerID,
					Success:   true,
					Message:   last.Resolution,
				})
			}
			return result, nil
		}

		rec := &ErrorRecord{
			ErrorType:     Classify(err).String(),
			Message:       cut(err.Error(), 500),
			Provider:      providerID,
			PromptSnippet: cut(prompt, 200),
			RetryAttempt:  attempt,
			Timestamp:     l.opts.Now(),
			Err:           err,
		}
		l.mu.Lock()
		l.history = append(l.history, rec)
		if len(l.history) > historyCap {
			l.history = l.history[len(l.history)-historyCap:]
		}
		l.consecutive++
		l.mu.Unlock()
		last = rec

		l.inject(fmt.Sprintf("error_%d", attempt), rec.Summary(), 0.7)
		logging.ErrorsWarn("loop-back [%d/%d]: %s (provider=%s)", attempt, maxAttempts, cut(rec.Message, 80), providerID)
	}
	return "", last
}

// ExecuteWithFallback runs Execute for each attempt in order and returns the
// first non-empty result with the provider that produced it.
func (l *LoopBack) ExecuteWithFallback(ctx context.Context, attempts []Attempt) (string, string) {
	for _, a := range attempts {
		result, rec := l.Execute(ctx, a.Call, a.Prompt, a.ProviderID)
		if result != "" {
			return result, a.ProviderID
		}
		if rec != nil {
			logging.Errors("provider %s exhausted, trying next", a.ProviderID)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", ""
}

func (l *LoopBack) loopbackPrompt(original string, rec *ErrorRecord, attempt int) string {
	var sb strings.Builder
	sb.WriteString("Your previous attempt failed with this error:\n\n")
	fmt.Fprintf(&sb, "ERROR: %s: %s\n", rec.ErrorType, cut(rec.Message, 300))
	fmt.Fprintf(&sb, "PROVIDER: %s\n", rec.Provider)
	fmt.Fprintf(&sb, "ATTEMPT: %d/%d\n\n", attempt, l.opts.MaxTotalRetries)
	sb.WriteString("What you were trying to do:\n")
	sb.WriteString(cut(original, 500))
	sb.WriteString("\n\n")
	if hints := l.Hints(rec); hints != "" {
		sb.WriteString(hints)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Try again, adjusting your approach to avoid the same error. " +
		"If a tool failed, use a different tool or rephrase its parameters.")
	return sb.String()
}

// Hints lists retry advice for the record, one per line. Every matching
// pattern contributes, plus an alert when the same error type from the same
// provider was seen three or more times in the last five minutes.
func (l *LoopBack) Hints(rec *ErrorRecord) string {
	msg := strings.ToLower(rec.Message)
	cats := matchAll(msg)
	if rec.ErrorType == CategoryTimeout.String() && !containsCategory(cats, CategoryTimeout) {
		cats = append(cats, CategoryTimeout)
	}

	var hints []string
	for _, c := range cats {
		hints = append(hints, c.Hint())
	}
	if n := l.similar(rec); n >= similarAlertMin {
		hints = append(hints, fmt.Sprintf("ALERT: this error happened %dx recently. Change strategy completely.", n))
	}
	return strings.Join(hints, "\n")
}

func containsCategory(cats []Category, c Category) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

func (l *LoopBack) similar(rec *ErrorRecord) int {
	cutoff := l.opts.Now().Add(-similarWindow)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.history {
		if e.ErrorType == rec.ErrorType && e.Provider == rec.Provider && e.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *LoopBack) inject(key, content string, priority float64) {
	if l.opts.Context != nil {
		l.opts.Context.Set(key, content, "error", priority, l.opts.ErrorTTL)
	}
}

// RecentErrors returns copies of the last 10 records.
func (l *LoopBack) RecentErrors() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := len(l.history) - 10
	if start < 0 {
		start = 0
	}
	out := make([]ErrorRecord, 0, len(l.history)-start)
	for _, r := range l.history[start:] {
		out = append(out, *r)
	}
	return out
}

// ErrorRate is the unresolved share of the last 20 records.
func (l *LoopBack) ErrorRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorRate()
}

func (l *LoopBack) errorRate() float64 {
	start := len(l.history) - 20
	if start < 0 {
		start = 0
	}
	recent := l.history[start:]
	if len(recent) == 0 {
		return 0
	}
	unresolved := 0
	for _, r := range recent {
		if !r.Resolved {
			unresolved++
		}
	}
	return float64(unresolved) / float64(len(recent))
}

// IsDegraded reports persistent failure.
func (l *LoopBack) IsDegraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutive >= l.opts.DegradedThreshold
}

// Stats summarises the error history.
type Stats struct {
	TotalErrors         int
	Resolved            int
	ResolutionRate      float64
	ConsecutiveFailures int
	IsDegraded          bool
	ErrorRate           float64
	ByType              map[string]int
}

// Stats returns the current statistics.
func (l *LoopBack) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{
		TotalErrors:         len(l.history),
		ResolutionRate:      1,
		ConsecutiveFailures: l.consecutive,
		IsDegraded:          l.consecutive >= l.opts.DegradedThreshold,
		ErrorRate:           l.errorRate(),
		ByType:              make(map[string]int),
	}
	for _, r := range l.history {
		if r.Resolved {
			s.Resolved++
		}
		s.ByType[r.ErrorType]++
	}
	if s.TotalErrors > 0 {
		s.ResolutionRate = float64(s.Resolved) / float64(s.TotalErrors)
	}
	return s
}

// Summary renders Stats on one line.
func (l *LoopBack) Summary() string {
	s := l.Stats()
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	out := fmt.Sprintf("Errors: %d total, %d resolved, rate=%.1f%%, degraded=%t",
		s.TotalErrors, s.Resolved, s.ErrorRate*100, s.IsDegraded)
	if len(types) > 0 {
		out += " [" + strings.Join(types, ",") + "]"
	}
	return out
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
