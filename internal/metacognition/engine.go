// Package metacognition monitors enton's own reasoning: it scores strategies
// by outcome, tracks boredom from perceived surprise, and keeps a queue of
// topics to study.
package metacognition

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"enton/internal/config"
	"enton/internal/logging"
)

// Strategies tracked by default.
const (
	StrategyAgent  = "agent"
	StrategyDirect = "direct"
	StrategyVLM    = "vlm"
	StrategyDream  = "dream"
)

// ActionStudyGitHub is returned by Tick when boredom crosses the threshold.
const ActionStudyGitHub = "study_github"

// DefaultInterests are studied when the curiosity queue is empty.
var DefaultInterests = []string{
	"machine learning", "rust programming", "distributed systems",
	"neuromorphic computing", "philosophy of mind", "generative art",
	"autonomous agents", "computer vision", "game development",
}

var toolKeywords = []string{
	"arquivo", "file", "busca", "search", "sistema", "system",
	"shell", "comando", "run", "execute", "camera", "ptz",
	"lembra", "memory", "lembrete", "reminder", "descreva", "describe",
}

// ReasoningTrace records one brain call.
type ReasoningTrace struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"` // at most 200 chars
	Strategy    string    `json:"strategy"`
	Provider    string    `json:"provider"`
	Confidence  float64   `json:"confidence"`
	LatencyMS   float64   `json:"latency_ms"`
	ResponseLen int       `json:"response_len"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"` // at most 200 chars
	RetryCount  int       `json:"retry_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// CuriosityItem is a topic waiting to be explored.
type CuriosityItem struct {
	Topic     string    `json:"topic"`
	Source    string    `json:"source"` // prediction_anomaly, user_mention, ...
	Priority  float64   `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// TraceSink receives every recorded trace (e.g. the SQLite store).
type TraceSink interface {
	StoreTrace(ctx context.Context, t ReasoningTrace) error
}

// Options tune the engine.
type Options struct {
	BoredomGrowth    float64 // per second while surprise is low
	BoredomThreshold float64
	BoredomRelief    float64
	LowSurprise      float64
	HighSurprise     float64
	EMAAlpha         float64
	MaxTraces        int
	DefaultInterests []string
	Now              func() time.Time
	Rand             *rand.Rand
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		BoredomGrowth:    0.01,
		BoredomThreshold: 0.8,
		BoredomRelief:    0.5,
		LowSurprise:      0.2,
		HighSurprise:     0.5,
		EMAAlpha:         0.15,
		MaxTraces:        200,
		DefaultInterests: DefaultInterests,
		Now:              time.Now,
	}
}

// OptionsFromConfig builds Options from the metacognition config section.
func OptionsFromConfig(c config.MetacognitionConfig) Options {
	o := DefaultOptions()
	setPos(&o.BoredomGrowth, c.BoredomGrowth)
	setPos(&o.BoredomThreshold, c.BoredomThreshold)
	setPos(&o.BoredomRelief, c.BoredomRelief)
	setPos(&o.LowSurprise, c.LowSurprise)
	setPos(&o.HighSurprise, c.HighSurprise)
	setPos(&o.EMAAlpha, c.EMAAlpha)
	if c.MaxTraces > 0 {
		o.MaxTraces = c.MaxTraces
	}
	if len(c.DefaultInterests) > 0 {
		o.DefaultInterests = c.DefaultInterests
	}
	return o
}

func setPos(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// Engine is the metacognitive engine. All methods are safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	opts Options
	rnd  *rand.Rand
	sink TraceSink

	traces       []ReasoningTrace // ring, oldest first
	scores       map[string]float64
	totalCalls   int
	totalErrors  int
	totalLatency float64

	boredom   float64
	lastTick  time.Time
	curiosity []CuriosityItem
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxTraces <= 0 {
		opts.MaxTraces = 200
	}
	if len(opts.DefaultInterests) == 0 {
		opts.DefaultInterests = DefaultInterests
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		opts: opts,
		rnd:  rnd,
		scores: map[string]float64{
			StrategyAgent: 0.5, StrategyDirect: 0.5, StrategyVLM: 0.5, StrategyDream: 0.5,
		},
		lastTick: opts.Now(),
	}
}

// SetSink attaches a trace sink. Call before use.
func (e *Engine) SetSink(s TraceSink) { e.sink = s }

// --- recording ---

// BeginTrace starts timing a call. Finish it with EndTrace.
func (e *Engine) BeginTrace(query, strategy string) *ReasoningTrace {
	if strategy == "" {
		strategy = StrategyAgent
	}
	return &ReasoningTrace{
		ID:        uuid.NewString(),
		Query:     cut(query, 200),
		Strategy:  strategy,
		Success:   true,
		Timestamp: e.opts.Now(),
	}
}

// EndTrace finalizes and records a trace. A non-nil err marks it failed.
func (e *Engine) EndTrace(t *ReasoningTrace, response, provider string, err error) ReasoningTrace {
	t.LatencyMS = float64(e.opts.Now().Sub(t.Timestamp)) / float64(time.Millisecond)
	t.ResponseLen = len(response)
	t.Provider = provider
	t.Success = err == nil
	if err != nil {
		t.Error = cut(err.Error(), 200)
	}
	t.Confidence = AssessConfidence(*t, response)
	e.Record(*t)
	return *t
}

// Record folds a finished trace into the statistics and strategy scores.
func (e *Engine) Record(t ReasoningTrace) {
	e.mu.Lock()
	e.traces = append(e.traces, t)
	if over := len(e.traces) - e.opts.MaxTraces; over > 0 {
		e.traces = append(e.traces[:0:0], e.traces[over:]...)
	}
	e.totalCalls++
	e.totalLatency += t.LatencyMS
	if !t.Success {
		e.totalErrors++
	}

	reward := 0.0
	if t.Success {
		reward = 1.0
	}
	old, ok := e.scores[t.Strategy]
	if !ok {
		old = 0.5
	}
	a := e.opts.EMAAlpha
	e.scores[t.Strategy] = (1-a)*old + a*reward
	sink := e.sink
	e.mu.Unlock()

	logging.MetacognitionDebug("trace %s strategy=%s provider=%s ok=%v conf=%.2f %.0fms",
		t.ID, t.Strategy, t.Provider, t.Success, t.Confidence, t.LatencyMS)

	if sink != nil {
		if err := sink.StoreTrace(context.Background(), t); err != nil {
			logging.MetacognitionWarn("trace sink failed: %v", err)
		}
	}
}

// AssessConfidence is the heuristic confidence score of a call, in [0,1].
func AssessConfidence(t ReasoningTrace, response string) float64 {
	score := 0.7

	score -= float64(t.RetryCount) * 0.15

	switch {
	case t.LatencyMS > 10000:
		score -= 0.2
	case t.LatencyMS > 5000:
		score -= 0.1
	}

	switch n := len(response); {
	case n < 10:
		score -= 0.3
	case n < 30:
		score -= 0.1
	}

	if !t.Success {
		score -= 0.4
	}

	if lower := strings.ToLower(response); strings.Contains(lower, "erro") || strings.Contains(lower, "failed") {
		score -= 0.15
	}
	return clamp(score)
}

// --- strategy selection ---

// BestStrategy returns the strategy with the highest score. Ties break by
// name so the result is stable.
func (e *Engine) BestStrategy() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	best, bestScore := "", -1.0
	for _, name := range sortedKeys(e.scores) {
		if s := e.scores[name]; s > bestScore {
			best, bestScore = name, s
		}
	}
	return best
}

// StrategyScores returns a copy of the strategy scores.
func (e *Engine) StrategyScores() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.scores))
	for k, v := range e.scores {
		out[k] = v
	}
	return out
}

// ShouldUseTools reports whether the query looks like it needs tools.
func ShouldUseTools(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range toolKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ShouldUseTools is the method form of the package-level classifier.
func (e *Engine) ShouldUseTools(query string) bool { return ShouldUseTools(query) }

// --- analytics ---

// SuccessRate is the share of successful calls, 1.0 before any call.
func (e *Engine) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.successRateLocked()
}

func (e *Engine) successRateLocked() float64 {
	if e.totalCalls == 0 {
		return 1.0
	}
	return 1.0 - float64(e.totalErrors)/float64(e.totalCalls)
}

// AvgLatencyMS is the mean latency over all calls.
func (e *Engine) AvgLatencyMS() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.avgLatencyLocked()
}

func (e *Engine) avgLatencyLocked() float64 {
	if e.totalCalls == 0 {
		return 0
	}
	return e.totalLatency / float64(e.totalCalls)
}

// AvgConfidence is the mean confidence of the last 20 traces, 0.5 if none.
func (e *Engine) AvgConfidence() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.avgConfidenceLocked()
}

func (e *Engine) avgConfidenceLocked() float64 {
	recent := tail(e.traces, 20)
	if len(recent) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, t := range recent {
		sum += t.Confidence
	}
	return sum / float64(len(recent))
}

// RecentTraces returns the last 10 traces, oldest first.
func (e *Engine) RecentTraces() []ReasoningTrace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ReasoningTrace(nil), tail(e.traces, 10)...)
}

// ProviderStat aggregates calls per provider.
type ProviderStat struct {
	Calls       int     `json:"calls"`
	Errors      int     `json:"errors"`
	TotalMS     float64 `json:"total_ms"`
	SuccessRate float64 `json:"success_rate"`
	AvgMS       float64 `json:"avg_ms"`
}

// ProviderStats returns per-provider statistics over the trace ring.
func (e *Engine) ProviderStats() map[string]ProviderStat {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := make(map[string]ProviderStat)
	for _, t := range e.traces {
		if t.Provider == "" {
			continue
		}
		s := stats[t.Provider]
		s.Calls++
		s.TotalMS += t.LatencyMS
		if !t.Success {
			s.Errors++
		}
		stats[t.Provider] = s
	}
	for p, s := range stats {
		s.SuccessRate = 1.0 - float64(s.Errors)/float64(s.Calls)
		s.AvgMS = s.TotalMS / float64(s.Calls)
		stats[p] = s
	}
	return stats
}

// Introspect summarizes reasoning health for prompt context.
func (e *Engine) Introspect() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.traces) == 0 {
		return "No reasoning history yet."
	}

	recent := tail(e.traces, 10)
	errors := 0
	providers := map[string]bool{}
	for _, t := range recent {
		if !t.Success {
			errors++
		}
		if t.Provider != "" {
			providers[t.Provider] = true
		}
	}

	best, bestScore := "", -1.0
	for _, name := range sortedKeys(e.scores) {
		if s := e.scores[name]; s > bestScore {
			best, bestScore = name, s
		}
	}

	parts := []string{
		fmt.Sprintf("Calls: %d total", e.totalCalls),
		fmt.Sprintf("success rate: %.0f%%", e.successRateLocked()*100),
		fmt.Sprintf("avg latency: %.0fms", e.avgLatencyLocked()),
		fmt.Sprintf("avg confidence: %.2f", e.avgConfidenceLocked()),
		fmt.Sprintf("best strategy: %s", best),
	}
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("recent errors: %d/10", errors))
	}
	if len(providers) > 0 {
		parts = append(parts, "providers: "+strings.Join(sortedKeys(providers), ", "))
	}
	return strings.Join(parts, " | ")
}

// --- boredom and curiosity ---

// Tick updates boredom from the latest surprise and returns ActionStudyGitHub
// while boredom is above the threshold.
func (e *Engine) Tick(surprise float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Now()
	dt := now.Sub(e.lastTick).Seconds()
	e.lastTick = now

	switch {
	case surprise < e.opts.LowSurprise:
		e.boredom = math.Min(1, e.boredom+e.opts.BoredomGrowth*dt)
	case surprise > e.opts.HighSurprise:
		e.boredom = math.Max(0, e.boredom-e.opts.BoredomRelief)
	}

	if e.boredom > e.opts.BoredomThreshold {
		logging.MetacognitionDebug("bored (%.2f), deciding to study", e.boredom)
		return ActionStudyGitHub
	}
	return ""
}

// RelieveBoredom lowers boredom by the configured relief, as a surprising
// event would.
func (e *Engine) RelieveBoredom() {
	e.mu.Lock()
	e.boredom = math.Max(0, e.boredom-e.opts.BoredomRelief)
	e.mu.Unlock()
}

// Boredom returns the current boredom level.
func (e *Engine) Boredom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.boredom
}

// AddCuriosity queues a topic to explore.
func (e *Engine) AddCuriosity(topic, source string, priority float64) {
	e.mu.Lock()
	e.curiosity = append(e.curiosity, CuriosityItem{
		Topic: topic, Source: source, Priority: priority, CreatedAt: e.opts.Now(),
	})
	e.mu.Unlock()
	logging.Metacognition("new curiosity: %s (source: %s)", topic, source)
}

// NextTopic pops the oldest queued topic, or picks a random default interest.
func (e *Engine) NextTopic() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.curiosity) > 0 {
		item := e.curiosity[0]
		e.curiosity = e.curiosity[1:]
		return item.Topic
	}
	return e.opts.DefaultInterests[e.rnd.Intn(len(e.opts.DefaultInterests))]
}

// CuriosityLen returns the number of queued topics.
func (e *Engine) CuriosityLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.curiosity)
}

// --- persistence ---

// Snapshot is the persisted and reported engine state.
type Snapshot struct {
	TotalCalls     int                `json:"total_calls"`
	TotalErrors    int                `json:"total_errors"`
	TotalLatencyMS float64            `json:"total_latency_ms"`
	SuccessRate    float64            `json:"success_rate"`
	AvgLatencyMS   float64            `json:"avg_latency_ms"`
	AvgConfidence  float64            `json:"avg_confidence"`
	StrategyScores map[string]float64 `json:"strategy_scores"`
	BoredomLevel   float64            `json:"boredom_level"`
	Curiosity      []CuriosityItem    `json:"curiosity,omitempty"`
}

// Snapshot captures the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	scores := make(map[string]float64, len(e.scores))
	for k, v := range e.scores {
		scores[k] = round(v, 3)
	}
	return Snapshot{
		TotalCalls:     e.totalCalls,
		TotalErrors:    e.totalErrors,
		TotalLatencyMS: e.totalLatency,
		SuccessRate:    round(e.successRateLocked(), 3),
		AvgLatencyMS:   round(e.avgLatencyLocked(), 1),
		AvgConfidence:  round(e.avgConfidenceLocked(), 3),
		StrategyScores: scores,
		BoredomLevel:   round(e.boredom, 2),
		Curiosity:      append([]CuriosityItem(nil), e.curiosity...),
	}
}

// Restore loads counters, scores, boredom and curiosity from a snapshot.
func (e *Engine) Restore(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalCalls = s.TotalCalls
	e.totalErrors = s.TotalErrors
	e.totalLatency = s.TotalLatencyMS
	for k, v := range s.StrategyScores {
		e.scores[k] = clamp(v)
	}
	e.boredom = clamp(s.BoredomLevel)
	e.curiosity = append([]CuriosityItem(nil), s.Curiosity...)
}

// --- helpers ---

func clamp(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail(ts []ReasoningTrace, n int) []ReasoningTrace {
	if len(ts) <= n {
		return ts
	}
	return ts[len(ts)-n:]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
