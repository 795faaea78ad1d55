// Package sysinfo provides the system_status tool: host resources plus the
// agent's own view of itself.
package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"

	"enton/internal/selfmodel"
	"enton/internal/tools"
)

// Introspector describes the agent's internal state in one paragraph.
type Introspector interface {
	Introspect() string
}

// Status gathers the report. Probe and Uptime are swappable for tests.
type Status struct {
	DiskPath string
	Self     Introspector

	Probe  func(path string) selfmodel.HostStats
	Uptime func(ctx context.Context) (time.Duration, error)
	Load   func(ctx context.Context) (*load.AvgStat, error)
}

// NewStatus reads the real host through gopsutil.
func NewStatus(diskPath string, self Introspector) *Status {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Status{
		DiskPath: diskPath,
		Self:     self,
		Probe:    selfmodel.ReadHost,
		Uptime: func(ctx context.Context) (time.Duration, error) {
			secs, err := host.UptimeWithContext(ctx)
			return time.Duration(secs) * time.Second, err
		},
		Load: load.AvgWithContext,
	}
}

// Report renders the status text.
func (s *Status) Report(ctx context.Context) string {
	var sb strings.Builder
	h := s.Probe(s.DiskPath)
	if h.Unavailable {
		sb.WriteString("Host: resource usage unavailable\n")
	} else {
		fmt.Fprintf(&sb, "Host %s (%s/%s)\n", h.Hostname, runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(&sb, "CPU: %.1f%%\n", h.CPUPercent)
		fmt.Fprintf(&sb, "Memory: %.1fGB / %.1fGB (%.0f%%)\n", h.MemUsedGB, h.MemTotalGB, h.MemPercent)
		fmt.Fprintf(&sb, "Disk %s: %.1fGB free (%.0f%% used)\n", s.DiskPath, h.DiskFreeGB, h.DiskPercent)
	}
	if s.Load != nil {
		if avg, err := s.Load(ctx); err == nil && avg != nil {
			fmt.Fprintf(&sb, "Load: %.2f %.2f %.2f\n", avg.Load1, avg.Load5, avg.Load15)
		}
	}
	if s.Uptime != nil {
		if up, err := s.Uptime(ctx); err == nil && up > 0 {
			fmt.Fprintf(&sb, "Host uptime: %s\n", up.Truncate(time.Minute))
		}
	}
	if s.Self != nil {
		sb.WriteString("\n")
		sb.WriteString(s.Self.Introspect())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Tool exposes Report as system_status.
func (s *Status) Tool() *tools.Tool {
	return &tools.Tool{
		Name:        "system_status",
		Description: "Report host CPU, memory, disk and load, plus my own mood and internal state",
		Category:    tools.CategorySystem,
		Source:      "builtin",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return s.Report(ctx), nil
		},
		Schema: tools.ToolSchema{Properties: map[string]tools.Property{}},
	}
}

// RegisterAll registers system_status.
func RegisterAll(registry *tools.Registry, s *Status) error {
	return registry.Register(s.Tool())
}
