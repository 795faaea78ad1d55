package selfmodel

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of host resource usage.
type HostStats struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemUsedGB   float64 `json:"mem_used_gb"`
	MemTotalGB  float64 `json:"mem_total_gb"`
	MemPercent  float64 `json:"mem_percent"`
	DiskFreeGB  float64 `json:"disk_free_gb"`
	DiskPercent float64 `json:"disk_percent"`
	Hostname    string  `json:"hostname"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

const gb = 1 << 30

// ReadHost samples CPU, memory and the disk holding path. Failing probes
// leave their fields zero; Unavailable is set when every probe failed.
func ReadHost(path string) HostStats {
	var s HostStats
	ok := false

	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		s.CPUPercent = usage[0]
		ok = true
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsedGB = float64(vm.Used) / gb
		s.MemTotalGB = float64(vm.Total) / gb
		s.MemPercent = vm.UsedPercent
		ok = true
	}
	if path == "" {
		path = "/"
	}
	if du, err := disk.Usage(path); err == nil {
		s.DiskFreeGB = float64(du.Free) / gb
		s.DiskPercent = du.UsedPercent
		ok = true
	}
	s.Hostname, _ = os.Hostname()
	s.Unavailable = !ok
	return s
}

// String renders a compact one-line summary.
func (h HostStats) String() string {
	if h.Unavailable {
		return "Host: unknown"
	}
	return fmt.Sprintf("Host: CPU %.0f%%, RAM %.1fGB/%.0fGB, disk free %.1fGB",
		h.CPUPercent, h.MemUsedGB, h.MemTotalGB, h.DiskFreeGB)
}
