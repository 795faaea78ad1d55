package shell

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enton/internal/tools"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunCommandTool_Definition(t *testing.T) {
	tool := RunCommandTool(30 * time.Second)
	assert.Equal(t, "run_command", tool.Name)
	assert.Equal(t, []string{"command"}, tool.Schema.Required)
	assert.Equal(t, 30, tool.Schema.Properties["timeout_seconds"].Default)
	require.NoError(t, tool.Validate())
}

func TestRunCommand_MissingCommand(t *testing.T) {
	_, err := executeRunCommand(context.Background(), map[string]any{}, time.Second)
	assert.Error(t, err)
}

func TestRunCommand_Success(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	out, err := executeRunCommand(context.Background(), map[string]any{
		"command":     "echo hello && pwd",
		"working_dir": dir,
	}, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hello\n"))
	assert.Contains(t, out, dir)
}

func TestRunCommand_StderrAndFailure(t *testing.T) {
	skipOnWindows(t)
	out, err := executeRunCommand(context.Background(), map[string]any{
		"command": "echo out; echo oops >&2; exit 3",
	}, 10*time.Second)
	require.Error(t, err)
	assert.Contains(t, out, "out\n--- stderr ---\noops")
	assert.Contains(t, err.Error(), "command failed")
}

func TestRunCommand_Timeout(t *testing.T) {
	skipOnWindows(t)
	start := time.Now()
	_, err := executeRunCommand(context.Background(), map[string]any{
		"command":         "sleep 5",
		"timeout_seconds": 1.0,
	}, 10*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg, time.Minute))
	assert.Equal(t, []string{"run_command"}, reg.Names())
}
