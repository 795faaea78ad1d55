package errorloop

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enton/internal/contextengine"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newLoop(sink ContextSink) (*LoopBack, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 4, 4, 12, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Context = sink
	opts.Now = clock.Now
	return New(opts), clock
}

// scripted fails with the given errors in order, then succeeds.
func scripted(result string, errs ...error) (CallFunc, *[]string) {
	var prompts []string
	return func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		if len(prompts) <= len(errs) {
			return "", errs[len(prompts)-1]
		}
		return result, nil
	}, &prompts
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{errors.New("HTTP 429 Too Many Requests"), CategoryRateLimit},
		{context.DeadlineExceeded, CategoryTimeout},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), CategoryTimeout},
		{errors.New("tool not found: zap"), CategoryToolNotFound},
		{errors.New("invalid character '}' looking for beginning of JSON"), CategoryParse},
		{errors.New("dial tcp: connection refused"), CategoryConnection},
		{errors.New("open /etc/shadow: permission denied"), CategoryPermission},
		{errors.New("boom"), CategoryUnknown},
		{nil, CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), fmt.Sprint(tt.err))
	}
}

func TestExecute_SuccessFirstTry(t *testing.T) {
	l, _ := newLoop(nil)
	fn, prompts := scripted("hello")

	got, rec := l.Execute(context.Background(), fn, "say hi", "local")
	assert.Equal(t, "hello", got)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"say hi"}, *prompts)
	assert.Equal(t, 0, l.Stats().TotalErrors)
}

func TestExecute_RecoversWithLoopbackPrompt(t *testing.T) {
	ctxEngine := contextengine.New(contextengine.Options{})
	l, _ := newLoop(ctxEngine)
	fn, prompts := scripted("fixed", errors.New("failed to decode JSON response"))

	got, rec := l.Execute(context.Background(), fn, "list files", "gemini")
	require.Nil(t, rec)
	assert.Equal(t, "fixed", got)

	require.Len(t, *prompts, 2)
	retry := (*prompts)[1]
	assert.Contains(t, retry, "ERROR: parse: failed to decode JSON response")
	assert.Contains(t, retry, "PROVIDER: gemini")
	assert.Contains(t, retry, "ATTEMPT: 2/3")
	assert.Contains(t, retry, "list files")
	assert.Contains(t, retry, "Reply with plain text instead of JSON")

	errNote, ok := ctxEngine.Get("error_1")
	require.True(t, ok)
	assert.Contains(t, errNote, "[parse]")
	_, ok = ctxEngine.Get("error_resolved_2")
	assert.True(t, ok)

	recent := l.RecentErrors()
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Resolved)
	assert.Equal(t, "Resolved on attempt 2", recent[0].Resolution)
	assert.Equal(t, 0.0, l.ErrorRate())
}

func TestExecute_ExhaustsRetries(t *testing.T) {
	l, _ := newLoop(nil)
	boom := errors.New("connection refused")
	fn, prompts := scripted("never", boom, boom, boom)

	got, rec := l.Execute(context.Background(), fn, "x", "local")
	assert.Equal(t, "", got)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.RetryAttempt)
	assert.ErrorIs(t, rec.Err, boom)
	assert.Len(t, *prompts, 3)
	assert.Contains(t, (*prompts)[2], "Service unavailable")
	assert.NotContains(t, (*prompts)[2], "ALERT", "only two similar errors so far")
	assert.Equal(t, 1.0, l.ErrorRate())
}

func TestExecute_StopsOnCancelledContext(t *testing.T) {
	l, _ := newLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "", errors.New("boom")
	}
	_, rec := l.Execute(ctx, fn, "x", "local")
	require.NotNil(t, rec)
	assert.Equal(t, 1, calls)
}

func TestSimilarErrorsWindow(t *testing.T) {
	l, clock := newLoop(nil)
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		fn, _ := scripted("", boom)
		l.Execute(context.Background(), fn, "x", "local")
	}
	rec := &ErrorRecord{ErrorType: "unknown", Provider: "local"}
	assert.Contains(t, l.Hints(rec), "3x recently")

	clock.Advance(6 * time.Minute)
	assert.Equal(t, "", l.Hints(rec))
	assert.Equal(t, "", l.Hints(&ErrorRecord{ErrorType: "unknown", Provider: "other"}))
}

func TestExecuteWithFallback(t *testing.T) {
	l, _ := newLoop(nil)
	bad, _ := scripted("", errors.New("x"), errors.New("x"), errors.New("x"))
	good, _ := scripted("from openai")

	result, provider := l.ExecuteWithFallback(context.Background(), []Attempt{
		{ProviderID: "local", Prompt: "p", Call: bad},
		{ProviderID: "openai", Prompt: "p", Call: good},
	})
	assert.Equal(t, "from openai", result)
	assert.Equal(t, "openai", provider)

	result, provider = l.ExecuteWithFallback(context.Background(), nil)
	assert.Equal(t, "", result)
	assert.Equal(t, "", provider)
}

func TestDegradedAndStats(t *testing.T) {
	l, _ := newLoop(nil)
	boom := errors.New("429 rate limited")
	for i := 0; i < 2; i++ {
		fn, _ := scripted("", boom, boom, boom)
		l.Execute(context.Background(), fn, "x", "openrouter")
	}
	assert.True(t, l.IsDegraded())

	s := l.Stats()
	assert.Equal(t, 6, s.TotalErrors)
	assert.Equal(t, 6, s.ConsecutiveFailures)
	assert.Equal(t, map[string]int{"rate_limit": 6}, s.ByType)
	assert.Equal(t, 0.0, s.ResolutionRate)
	assert.Equal(t, "Errors: 6 total, 0 resolved, rate=100.0%, degraded=true [rate_limit]", l.Summary())

	ok, _ := scripted("fine")
	l.Execute(context.Background(), ok, "x", "openrouter")
	assert.False(t, l.IsDegraded())
}

func TestHistoryIsBounded(t *testing.T) {
	l, _ := newLoop(nil)
	boom := errors.New("boom")
	for i := 0; i < 20; i++ {
		fn, _ := scripted("", boom, boom, boom)
		l.Execute(context.Background(), fn, "x", "local")
	}
	assert.Equal(t, 50, l.Stats().TotalErrors)
	assert.Len(t, l.RecentErrors(), 10)
}
