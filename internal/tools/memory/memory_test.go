package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enton/internal/store"
	"enton/internal/tools"
)

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg, s))
	return reg
}

func TestRememberThenRecall(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	res, err := reg.Execute(ctx, "remember", map[string]any{
		"content": "the user's cat is called Mingau",
		"tags":    []any{"cat", "pets"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Result, "Remembered")

	res, err = reg.Execute(ctx, "recall", map[string]any{"query": "pets"})
	require.NoError(t, err)
	assert.Contains(t, res.Result, "1 memories about 'pets'")
	assert.Contains(t, res.Result, "Mingau")
	assert.Contains(t, res.Result, "tags: cat, pets")
	assert.Contains(t, res.Result, store.KindFact)
}

func TestRecallNothing(t *testing.T) {
	reg := newRegistry(t)
	res, err := reg.Execute(context.Background(), "recall", map[string]any{"query": "dragons"})
	require.NoError(t, err)
	assert.Equal(t, "Nothing remembered about 'dragons'.", res.Result)
}

func TestRememberValidation(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Execute(context.Background(), "remember", map[string]any{})
	assert.ErrorIs(t, err, tools.ErrMissingRequiredArg)

	_, err = reg.Execute(context.Background(), "remember", map[string]any{"content": " "})
	assert.Error(t, err)
}

func TestFormatEpisodes(t *testing.T) {
	at := time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC)
	got := FormatEpisodes("rust", []store.Episode{
		{Kind: store.KindStudy, Content: "notes", CreatedAt: at},
	})
	assert.Equal(t, "1 memories about 'rust':\n- [2025-01-02 15:04 study] notes", got)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", 1, "", "b"}))
	assert.Equal(t, []string{"a", "b"}, stringList("a,b"))
	assert.Nil(t, stringList(nil))
}
