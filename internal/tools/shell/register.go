package shell

import (
	"time"

	"enton/internal/tools"
)

// RegisterAll registers the shell tools with the given registry.
func RegisterAll(registry *tools.Registry, timeout time.Duration) error {
	return registry.Register(RunCommandTool(timeout))
}
