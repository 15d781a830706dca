// Package hostinfo samples the load of the machine running the attack.
package hostinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"timing-attack/internal/core"
)

// sampleWindow is how long CPU usage is measured for
const sampleWindow = 200 * time.Millisecond

// Snapshot measures CPU and memory usage of the local host
func Snapshot(ctx context.Context) (*core.HostSnapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, sampleWindow, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percents) == 0 {
		return nil, fmt.Errorf("failed to read cpu usage: no samples")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory usage: %w", err)
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count cpus: %w", err)
	}

	return &core.HostSnapshot{
		CPUPercent:    percents[0],
		MemoryPercent: vm.UsedPercent,
		LogicalCPUs:   cores,
	}, nil
}
