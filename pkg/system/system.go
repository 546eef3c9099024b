package system

import (
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	virtualMemory = mem.VirtualMemory
	uptime        = host.Uptime
	reboot        = func() error { return exec.Command("sudo", "reboot").Run() }
)

// Reboot restarts the whole device.
func Reboot() error {
	if err := reboot(); err != nil {
		return fmt.Errorf("failed to reboot: %w", err)
	}
	return nil
}

// LargeMemory reports whether the device has at least threshold bytes of RAM,
// which selects the large-memory capture defaults.
func LargeMemory(threshold uint64) (bool, error) {
	v, err := virtualMemory()
	if err != nil {
		return false, fmt.Errorf("failed to read memory info: %w", err)
	}
	return v.Total >= threshold, nil
}

type Health struct {
	MemoryTotal   uint64  `json:"memoryTotal"`
	MemoryUsed    uint64  `json:"memoryUsed"`
	MemoryPercent float64 `json:"memoryPercent"`
	Uptime        uint64  `json:"uptime"` // seconds
}

func ReadHealth() (Health, error) {
	v, err := virtualMemory()
	if err != nil {
		return Health{}, fmt.Errorf("failed to read memory info: %w", err)
	}
	up, err := uptime()
	if err != nil {
		return Health{}, fmt.Errorf("failed to read uptime: %w", err)
	}
	return Health{
		MemoryTotal:   v.Total,
		MemoryUsed:    v.Used,
		MemoryPercent: v.UsedPercent,
		Uptime:        up,
	}, nil
}
