package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_NoopBeforeInitialize(t *testing.T) {
	CloseAll()
	mu.Lock()
	opts = Options{}
	mu.Unlock()

	l := Get(CategoryWorkspace)
	require.NotNil(t, l)
	assert.Nil(t, l.sugar)
	// Must not panic.
	l.Info("hello %d", 1)
	Workspace("hello")
}

func TestInitialize_WritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{Enabled: true, Level: "debug"}))
	t.Cleanup(CloseAll)

	Brain("thinking about %s", "cats")
	PredictionDebug("bucket=%s", "Mon-10")
	Sync()

	date := time.Now().Format("2006-01-02")
	for _, cat := range []Category{CategoryBoot, CategoryBrain, CategoryPrediction} {
		path := filepath.Join(dir, date+"_"+string(cat)+".log")
		data, err := os.ReadFile(path)
		require.NoError(t, err, "missing log file for %s", cat)
		assert.NotEmpty(t, data)
	}

	data, err := os.ReadFile(filepath.Join(dir, date+"_brain.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "thinking about cats")
}

func TestInitialize_CategoryFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{
		Enabled:    true,
		Categories: map[string]bool{"tools": false},
	}))
	t.Cleanup(CloseAll)

	assert.False(t, IsCategoryEnabled(CategoryTools))
	assert.True(t, IsCategoryEnabled(CategorySkills))
	assert.Nil(t, Get(CategoryTools).sugar)
}

func TestInitialize_LevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{Enabled: true, Level: "warn"}))
	t.Cleanup(CloseAll)

	SpeechDebug("hidden")
	SpeechWarn("visible")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+"_speech.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestAttach_RoutesToBaseLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Attach(zap.New(core))
	t.Cleanup(CloseAll)

	Awareness("SENTINEL -> ATTENTIVE")
	Get(CategoryTools).WithContext(map[string]interface{}{"tool": "web_fetch"}).Warn("slow")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "awareness", entries[0].LoggerName)
	assert.Equal(t, "SENTINEL -> ATTENTIVE", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "web_fetch", entries[1].ContextMap()["tool"])
}

func TestAudit_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{Enabled: true}))
	require.NoError(t, InitAudit())
	t.Cleanup(func() {
		CloseAudit()
		CloseAll()
	})

	Audit(AuditEvent{EventType: AuditBroadcast, Source: "workspace", Target: "perception", Success: true, Message: "winner"})
	CloseAudit()

	f, err := os.Open(filepath.Join(dir, time.Now().Format("2006-01-02")+"_audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
	assert.Equal(t, "broadcast", line["event"])
	assert.Equal(t, "perception", line["target"])
	assert.True(t, strings.Contains(sc.Text(), "winner"))
}

func TestTimer_StopWithThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Attach(zap.New(core))
	t.Cleanup(CloseAll)

	timer := StartTimer(CategoryBrain, "think")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)

	require.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
