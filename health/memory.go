package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCheckerConfig sets the budgets of a MemoryChecker.
type MemoryCheckerConfig struct {
	// WarningThreshold and CriticalThreshold are heap-to-budget ratios in
	// (0, 1) at which the checker turns degraded and unhealthy. Defaults
	// 0.8 and 0.95.
	WarningThreshold  float64
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero means the host's total
	// memory.
	MaxAlloc uint64

	// Entries counts cached ABIs. With MaxEntries > 0 the checker is
	// degraded once the count reaches MaxEntries.
	Entries    func() int
	MaxEntries int
}

func (c MemoryCheckerConfig) withDefaults() MemoryCheckerConfig {
	if c.WarningThreshold <= 0 || c.WarningThreshold >= 1 {
		c.WarningThreshold = 0.8
	}
	if c.CriticalThreshold <= 0 || c.CriticalThreshold >= 1 {
		c.CriticalThreshold = 0.95
	}
	if c.CriticalThreshold < c.WarningThreshold {
		c.CriticalThreshold = min(c.WarningThreshold+0.1, 0.99)
	}
	return c
}

// MemoryChecker watches the process heap and the size of the ABI cache,
// which keeps every resolved ABI for the life of the process.
type MemoryChecker struct {
	config        MemoryCheckerConfig
	virtualMemory func(context.Context) (*mem.VirtualMemoryStat, error)
}

func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	return &MemoryChecker{config: config.withDefaults(), virtualMemory: mem.VirtualMemoryWithContext}
}

func (m *MemoryChecker) Name() string { return "memory" }

// Check reports the worse of the heap and the entry verdicts.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	details := map[string]any{
		"alloc_bytes":  ms.Alloc,
		"alloc_mb":     float64(ms.Alloc) / (1 << 20),
		"sys_bytes":    ms.Sys,
		"heap_in_use":  ms.HeapInuse,
		"heap_objects": ms.HeapObjects,
		"num_gc":       ms.NumGC,
		"goroutines":   runtime.NumGoroutine(),
	}

	result := m.heap(ctx, ms.Alloc, details)
	if m.config.Entries != nil {
		n := m.config.Entries()
		details["entries"] = n
		if m.config.MaxEntries > 0 && n >= m.config.MaxEntries && result.Status < StatusDegraded {
			result = Degraded(fmt.Sprintf("abi cache holds %d entries (limit %d)", n, m.config.MaxEntries))
		}
	}
	return result.WithDetails(details)
}

func (m *MemoryChecker) heap(ctx context.Context, alloc uint64, details map[string]any) Result {
	budget := m.config.MaxAlloc
	if budget == 0 {
		vm, err := m.virtualMemory(ctx)
		if err != nil || vm == nil || vm.Total == 0 {
			return Healthy("host memory unavailable")
		}
		budget = vm.Total
		details["host_total"] = vm.Total
		details["host_used_percent"] = vm.UsedPercent
	}

	ratio := float64(alloc) / float64(budget)
	details["max_alloc"] = budget
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100))
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100))
	}
}
