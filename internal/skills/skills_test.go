package skills

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"enton/internal/events"
	"enton/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const shoutSkill = `package main

import "strings"

var Name = "shout"
var Description = "Upper-case some text"
var Params = map[string]string{"text": "Text to shout", "suffix": "Appended"}
var Defaults = map[string]interface{}{"suffix": "!"}

func Run(args map[string]interface{}) (string, error) {
	return strings.ToUpper(args["text"].(string)) + args["suffix"].(string), nil
}
`

func TestLoadSource_Loaded(t *testing.T) {
	res := NewLoader(false).LoadSource("/skills/shout.go", shoutSkill)
	require.Equal(t, Loaded, res.Status, "err: %v", res.Err)
	assert.Equal(t, "shout", res.Name)
	require.NotNil(t, res.Tool)
	assert.Equal(t, tools.CategorySkill, res.Tool.Category)
	assert.Equal(t, "/skills/shout.go", res.Tool.Source)
	assert.Equal(t, []string{"text"}, res.Tool.Schema.Required, "params with defaults are optional")
	assert.Equal(t, "!", res.Tool.Schema.Properties["suffix"].Default)

	out, err := res.Tool.Execute(context.Background(), map[string]any{"text": "oi"})
	require.NoError(t, err)
	assert.Equal(t, "OI!", out)
}

func TestLoadSource_NameDefaultsToFile(t *testing.T) {
	src := `package main

func Run(args map[string]interface{}) (string, error) { return "pong", nil }
`
	res := NewLoader(false).LoadSource("/skills/ping.go", src)
	require.Equal(t, Loaded, res.Status, "err: %v", res.Err)
	assert.Equal(t, "ping", res.Name)
	assert.Equal(t, "Skill ping", res.Tool.Description)
	assert.Empty(t, res.Tool.Schema.Required)
}

func TestLoadSource_Rejections(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Status
	}{
		{"syntax error", "package main\n\nfunc Run( {", ParseError},
		{"not main", "package skill\n\nfunc Run(args map[string]interface{}) (string, error) { return \"\", nil }\n", ParseError},
		{"forbidden import", "package main\n\nimport \"os/exec\"\n\nvar _ = exec.Command\n\nfunc Run(args map[string]interface{}) (string, error) { return \"\", nil }\n", ParseError},
		{"no run", "package main\n\nvar Name = \"idle\"\n", NoCapability},
		{"wrong run signature", "package main\n\nfunc Run(s string) string { return s }\n", NoCapability},
	}
	l := NewLoader(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := l.LoadSource("/skills/x.go", tt.src)
			assert.Equal(t, tt.want, res.Status)
			assert.Error(t, res.Err)
			assert.Nil(t, res.Tool)
		})
	}
}

func TestLoader_AllowNetwork(t *testing.T) {
	src := "package main\n\nimport \"net/url\"\n\nfunc Run(args map[string]interface{}) (string, error) { return url.QueryEscape(\"a b\"), nil }\n"
	assert.Equal(t, ParseError, NewLoader(false).LoadSource("/s/q.go", src).Status)

	res := NewLoader(true).LoadSource("/s/q.go", src)
	require.Equal(t, Loaded, res.Status, "err: %v", res.Err)
	out, err := res.Tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "a+b", out)
}

func TestSkillPanicsAndTimeouts(t *testing.T) {
	l := NewLoader(false)
	res := l.LoadSource("/s/boom.go", "package main\n\nfunc Run(args map[string]interface{}) (string, error) { panic(\"boom\") }\n")
	require.Equal(t, Loaded, res.Status, "err: %v", res.Err)
	_, err := res.Tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	res = l.LoadSource("/s/slow.go", "package main\n\nimport \"time\"\n\nfunc Run(args map[string]interface{}) (string, error) { time.Sleep(200 * time.Millisecond); return \"late\", nil }\n")
	require.Equal(t, Loaded, res.Status, "err: %v", res.Err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = res.Tool.Execute(ctx, map[string]any{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	time.Sleep(250 * time.Millisecond) // let the interpreted call finish
}

func TestIsSkillFile(t *testing.T) {
	assert.True(t, IsSkillFile("/a/weather.go"))
	assert.False(t, IsSkillFile("/a/_draft.go"))
	assert.False(t, IsSkillFile("/a/weather_test.go"))
	assert.False(t, IsSkillFile("/a/readme.md"))
}

type eventLog struct {
	mu  sync.Mutex
	evs []events.SkillEvent
}

func (l *eventLog) Emit(ctx context.Context, ev events.Event) error {
	l.mu.Lock()
	l.evs = append(l.evs, ev.(events.SkillEvent))
	l.mu.Unlock()
	return nil
}

func (l *eventLog) actions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.evs))
	for i, e := range l.evs {
		out[i] = e.Action + ":" + e.Name
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRegistry_ScanLoadUnload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shout.go"), shoutSkill)
	writeFile(t, filepath.Join(dir, "_draft.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "broken.go"), "package main\n\nfunc Run( {")

	reg := tools.NewRegistry()
	log := &eventLog{}
	sr := NewRegistry(dir, NewLoader(false), reg, log)

	results, err := sr.ScanDir(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ParseError, results[0].Status)
	assert.Equal(t, Loaded, results[1].Status)
	assert.True(t, reg.Has("shout"))
	assert.True(t, sr.Has("shout"))
	assert.Equal(t, []string{"rejected:broken", "loaded:shout"}, log.actions())

	_, err = reg.Execute(context.Background(), "shout", map[string]any{"text": "a"})
	require.NoError(t, err)
	_, err = reg.Execute(context.Background(), "shout", map[string]any{"text": 1})
	require.Error(t, err)
	skills := sr.List()
	require.Len(t, skills, 1)
	assert.Equal(t, 1, skills[0].Successes)
	assert.Equal(t, 1, skills[0].Failures)

	assert.True(t, sr.UnloadPath(context.Background(), filepath.Join(dir, "shout.go")))
	assert.False(t, reg.Has("shout"))
	assert.False(t, sr.Unload(context.Background(), "shout"))
	assert.Equal(t, "unloaded:shout", log.actions()[2])
}

func TestRegistry_ReloadReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.go")
	writeFile(t, path, "package main\n\nvar Name = \"version\"\n\nfunc Run(args map[string]interface{}) (string, error) { return \"v1\", nil }\n")

	reg := tools.NewRegistry()
	sr := NewRegistry(dir, NewLoader(false), reg, nil)
	require.Equal(t, Loaded, sr.LoadFile(context.Background(), path).Status)

	writeFile(t, path, "package main\n\nvar Name = \"version\"\n\nfunc Run(args map[string]interface{}) (string, error) { return \"v2\", nil }\n")
	require.Equal(t, Loaded, sr.LoadFile(context.Background(), path).Status)

	res, err := reg.Execute(context.Background(), "version", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", res.Result)
	assert.Equal(t, 1, reg.Count())

	// Renaming the skill inside the same file drops the old tool.
	writeFile(t, path, "package main\n\nvar Name = \"renamed\"\n\nfunc Run(args map[string]interface{}) (string, error) { return \"v3\", nil }\n")
	require.Equal(t, Loaded, sr.LoadFile(context.Background(), path).Status)
	assert.False(t, reg.Has("version"))
	assert.True(t, reg.Has("renamed"))
}

type flakySink struct {
	*tools.Registry
	fail bool
}

func (f *flakySink) Replace(tool *tools.Tool) (bool, error) {
	if f.fail {
		return false, errors.New("registry full")
	}
	return f.Registry.Replace(tool)
}

func TestRegistry_FailedReplaceKeepsPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v.go")
	writeFile(t, path, "package main\n\nvar Name = \"version\"\n\nfunc Run(args map[string]interface{}) (string, error) { return \"v1\", nil }\n")

	sink := &flakySink{Registry: tools.NewRegistry()}
	log := &eventLog{}
	sr := NewRegistry(dir, NewLoader(false), sink, log)
	require.Equal(t, Loaded, sr.LoadFile(context.Background(), path).Status)

	sink.fail = true
	writeFile(t, path, "package main\n\nvar Name = \"renamed\"\n\nfunc Run(args map[string]interface{}) (string, error) { return \"v2\", nil }\n")
	res := sr.LoadFile(context.Background(), path)
	assert.Equal(t, NoCapability, res.Status)
	assert.ErrorContains(t, res.Err, "registry full")
	assert.Nil(t, res.Tool)

	assert.True(t, sr.Has("version"))
	assert.False(t, sr.Has("renamed"))
	assert.True(t, sink.Has("version"))
	assert.False(t, sink.Has("renamed"))
	out, err := sink.Execute(context.Background(), "version", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out.Result)
	assert.Equal(t, []string{"loaded:version", "rejected:renamed"}, log.actions())

	// Still tracked by path: removing the file removes the old version.
	assert.True(t, sr.UnloadPath(context.Background(), path))
	assert.False(t, sink.Has("version"))
}

func TestWatcher_HotReload(t *testing.T) {
	dir := t.TempDir()
	reg := tools.NewRegistry()
	sr := NewRegistry(dir, NewLoader(false), reg, nil)
	w := NewWatcher(sr, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	path := filepath.Join(dir, "shout.go")
	// The watch may not be registered yet; keep touching the file until it is seen.
	require.Eventually(t, func() bool {
		writeFile(t, path, shoutSkill)
		return reg.Has("shout")
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return !reg.Has("shout") }, 3*time.Second, 10*time.Millisecond)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Reloads, 1)
	assert.GreaterOrEqual(t, stats.FilesDeleted, 1)
}
