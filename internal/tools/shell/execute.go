package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"enton/internal/logging"
	"enton/internal/tools"
)

// maxOutput caps the returned output in bytes.
const maxOutput = 50000

// RunCommandTool returns a tool for executing shell commands. timeout is the
// default and upper bound for timeout_seconds.
func RunCommandTool(timeout time.Duration) *tools.Tool {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command on this machine and return its output",
		Category:    tools.CategorySystem,
		Source:      "builtin",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeRunCommand(ctx, args, timeout)
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the command",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: fmt.Sprintf("Timeout in seconds (default: %d)", int(timeout.Seconds())),
					Default:     int(timeout.Seconds()),
				},
			},
		},
	}
}

// shellCommand builds the platform shell invocation.
var shellCommand = func(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

func executeRunCommand(ctx context.Context, args map[string]any, limit time.Duration) (string, error) {
	command := tools.StringArg(args, "command")
	if command == "" {
		return "", fmt.Errorf("command is required")
	}
	workingDir := tools.StringArg(args, "working_dir")

	timeout := limit
	if s := tools.IntArg(args, "timeout_seconds", 0); s > 0 && time.Duration(s)*time.Second < limit {
		timeout = time.Duration(s) * time.Second
	}

	logging.ToolsDebug("run_command: cmd=%s, dir=%s, timeout=%v", command, workingDir, timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(execCtx, command)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()
	// children of the shell may keep the pipes open after it is killed
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n...[truncated]"
	}

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return output, fmt.Errorf("command timed out after %v", timeout)
		}
		logging.Tools("run_command failed: %s (%v)", command, err)
		return output, fmt.Errorf("command failed: %w\nOutput:\n%s", err, output)
	}

	logging.Tools("run_command completed: %s (%d bytes output)", command, len(output))
	return output, nil
}
