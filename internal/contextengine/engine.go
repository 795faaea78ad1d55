// Package contextengine manages the pieces of context (sensor readings,
// memories, tool results, error notes) that get assembled into LLM prompts
// under a token budget.
package contextengine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"enton/internal/logging"
)

// Entry categories.
const (
	CategorySensor       = "sensor"
	CategoryMemory       = "memory"
	CategoryToolResult   = "tool_result"
	CategoryConversation = "conversation"
	CategorySystem       = "system"
	CategoryError        = "error"
)

// Entry is one piece of context.
type Entry struct {
	Key        string
	Content    string
	Category   string
	Priority   float64 // 0 low, 1 critical
	Timestamp  time.Time
	TTL        time.Duration // zero never expires
	TokenCount int
}

// IsStale reports whether the entry outlived its TTL at now.
func (e Entry) IsStale(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.Timestamp) > e.TTL
}

// Relevance combines priority with a recency decay that halves after five
// minutes.
func (e Entry) Relevance(now time.Time) float64 {
	age := now.Sub(e.Timestamp).Seconds()
	recency := 1 / (1 + age/300)
	return e.Priority*0.7 + recency*0.3
}

// DefaultMaxTokens is the assembly budget when none is configured.
const DefaultMaxTokens = 8000

// Options configures an Engine.
type Options struct {
	MaxTokens     int
	CheckpointDir string // empty keeps checkpoints in memory only
	Now           func() time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	entries     map[string]Entry
	checkpoints map[string]Checkpoint

	maxTokens     int
	checkpointDir string
	counter       *TokenCounter
	now           func() time.Time
}

// New creates an empty engine.
func New(opts Options) *Engine {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		entries:       make(map[string]Entry),
		checkpoints:   make(map[string]Checkpoint),
		maxTokens:     opts.MaxTokens,
		checkpointDir: opts.CheckpointDir,
		counter:       NewTokenCounter(),
		now:           opts.Now,
	}
}

// Set adds or replaces an entry.
func (e *Engine) Set(key, content, category string, priority float64, ttl time.Duration) {
	if category == "" {
		category = CategorySystem
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[key] = Entry{
		Key:        key,
		Content:    content,
		Category:   category,
		Priority:   priority,
		Timestamp:  e.now(),
		TTL:        ttl,
		TokenCount: e.counter.CountString(content),
	}
}

// Get returns the content for key unless it is missing or stale.
func (e *Engine) Get(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entries[key]
	if !ok || entry.IsStale(e.now()) {
		return "", false
	}
	return entry.Content, true
}

// Remove deletes an entry and reports whether it existed.
func (e *Engine) Remove(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entries[key]
	delete(e.entries, key)
	return ok
}

// Len returns the number of entries, stale ones included.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// caller holds e.mu
func (e *Engine) cleanupStale() int {
	now := e.now()
	n := 0
	for k, v := range e.entries {
		if v.IsStale(now) {
			delete(e.entries, k)
			n++
		}
	}
	return n
}

// caller holds e.mu
func (e *Engine) currentTokens() int {
	total := 0
	for _, v := range e.entries {
		total += v.TokenCount
	}
	return total
}

// Assemble renders the most relevant entries that fit in the budget plus
// extraBudget, one "[category:key] content" line each. Entries that do not
// fit are skipped so smaller ones further down can still be included.
func (e *Engine) Assemble(extraBudget int) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n := e.cleanupStale(); n > 0 {
		logging.ContextDebug("dropped %d stale entries", n)
	}
	now := e.now()
	budget := e.maxTokens + extraBudget

	sorted := make([]Entry, 0, len(e.entries))
	for _, v := range e.entries {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Relevance(now), sorted[j].Relevance(now)
		if ri != rj {
			return ri > rj
		}
		return sorted[i].Key < sorted[j].Key
	})

	var parts []string
	used := 0
	for _, entry := range sorted {
		if used+entry.TokenCount > budget {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s:%s] %s", entry.Category, entry.Key, entry.Content))
		used += entry.TokenCount
	}
	return strings.Join(parts, "\n")
}

// AssembleByCategory groups live entry contents by category. A nil or empty
// filter includes every category. Within a category entries are ordered by key.
func (e *Engine) AssembleByCategory(categories ...string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanupStale()

	allow := make(map[string]bool, len(categories))
	for _, c := range categories {
		allow[c] = true
	}

	keys := make([]string, 0, len(e.entries))
	for k := range e.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make(map[string][]string)
	for _, k := range keys {
		entry := e.entries[k]
		if len(allow) > 0 && !allow[entry.Category] {
			continue
		}
		groups[entry.Category] = append(groups[entry.Category], entry.Content)
	}
	out := make(map[string]string, len(groups))
	for cat, items := range groups {
		out[cat] = strings.Join(items, "\n")
	}
	return out
}

// RotScore estimates how degraded the context is, from 0 (fresh) to 1. It
// weighs the stale share, budget pressure and low average relevance.
func (e *Engine) RotScore() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rotScore()
}

// caller holds e.mu
func (e *Engine) rotScore() float64 {
	if len(e.entries) == 0 {
		return 0
	}
	now := e.now()
	total := float64(len(e.entries))
	stale, relevance := 0, 0.0
	for _, v := range e.entries {
		if v.IsStale(now) {
			stale++
		}
		relevance += v.Relevance(now)
	}
	pressure := math.Min(1, float64(e.currentTokens())/float64(e.maxTokens))
	noise := 1 - relevance/total
	return math.Min(1, float64(stale)/total*0.3+pressure*0.4+noise*0.3)
}

// NeedsCompression reports whether rot exceeds threshold or the entries no
// longer fit the budget.
func (e *Engine) NeedsCompression(threshold float64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rotScore() > threshold || e.currentTokens() > e.maxTokens
}

// Stats summarises the engine.
type Stats struct {
	Entries     int
	TokensUsed  int
	TokensMax   int
	BudgetPct   float64
	RotScore    float64
	Categories  map[string]int
	Checkpoints int
}

// Stats returns current statistics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{
		Entries:     len(e.entries),
		TokensUsed:  e.currentTokens(),
		TokensMax:   e.maxTokens,
		RotScore:    e.rotScore(),
		Categories:  make(map[string]int),
		Checkpoints: len(e.checkpoints),
	}
	s.BudgetPct = math.Min(100, float64(s.TokensUsed)/float64(s.TokensMax)*100)
	for _, v := range e.entries {
		s.Categories[v.Category]++
	}
	return s
}

// Summary renders Stats on one line.
func (e *Engine) Summary() string {
	s := e.Stats()
	return fmt.Sprintf("Context: %d/%d tokens (%.1f%%), rot=%.2f, %d entries",
		s.TokensUsed, s.TokensMax, s.BudgetPct, s.RotScore, s.Entries)
}
