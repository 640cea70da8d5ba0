package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
)

func fakeHost(total uint64, err error) func(context.Context) (*mem.VirtualMemoryStat, error) {
	return func(context.Context) (*mem.VirtualMemoryStat, error) {
		if err != nil {
			return nil, err
		}
		return &mem.VirtualMemoryStat{Total: total, UsedPercent: 42}, nil
	}
}

func TestNewMemoryChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		config       MemoryCheckerConfig
		wantWarning  float64
		wantCritical float64
	}{
		{"defaults", MemoryCheckerConfig{}, 0.8, 0.95},
		{"custom", MemoryCheckerConfig{WarningThreshold: 0.7, CriticalThreshold: 0.9}, 0.7, 0.9},
		{"invalid warning", MemoryCheckerConfig{WarningThreshold: 1.5}, 0.8, 0.95},
		{"critical below warning", MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.7}, 0.9, 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryChecker(tt.config)
			if c.config.WarningThreshold != tt.wantWarning {
				t.Errorf("WarningThreshold = %v, want %v", c.config.WarningThreshold, tt.wantWarning)
			}
			if c.config.CriticalThreshold != tt.wantCritical {
				t.Errorf("CriticalThreshold = %v, want %v", c.config.CriticalThreshold, tt.wantCritical)
			}
		})
	}
}

func TestMemoryChecker_Name(t *testing.T) {
	if got := NewMemoryChecker(MemoryCheckerConfig{}).Name(); got != "memory" {
		t.Errorf("Name() = %q, want memory", got)
	}
}

func TestMemoryChecker_HostTotal(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{})
	c.virtualMemory = fakeHost(1<<50, nil)

	result := c.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("Status = %v (%s), want healthy", result.Status, result.Message)
	}
	if result.Details["host_total"] != uint64(1<<50) {
		t.Errorf("host_total = %v, want %d", result.Details["host_total"], uint64(1<<50))
	}
	for _, key := range []string{"alloc_bytes", "max_alloc", "usage_percent", "goroutines", "host_used_percent"} {
		if _, ok := result.Details[key]; !ok {
			t.Errorf("Details missing %q", key)
		}
	}
}

func TestMemoryChecker_HostUnavailable(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{})
	c.virtualMemory = fakeHost(0, errors.New("no /proc"))

	result := c.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
	if result.Message != "host memory unavailable" {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestMemoryChecker_MaxAllocExceeded(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{
		MaxAlloc:          1024,
		WarningThreshold:  0.5,
		CriticalThreshold: 0.8,
	})
	c.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		t.Error("host memory consulted although MaxAlloc is set")
		return nil, nil
	}

	result := c.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy with a 1KB budget", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckFailed) {
		t.Errorf("Error = %v, want ErrCheckFailed", result.Error)
	}
	if result.Details["max_alloc"] != uint64(1024) {
		t.Errorf("max_alloc = %v, want 1024", result.Details["max_alloc"])
	}
}

func TestMemoryChecker_Entries(t *testing.T) {
	tests := []struct {
		name       string
		entries    int
		maxEntries int
		want       Status
	}{
		{"no limit", 500, 0, StatusHealthy},
		{"under limit", 9, 10, StatusHealthy},
		{"at limit", 10, 10, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryChecker(MemoryCheckerConfig{
				Entries:    func() int { return tt.entries },
				MaxEntries: tt.maxEntries,
			})
			c.virtualMemory = fakeHost(1<<50, nil)

			result := c.Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("Status = %v (%s), want %v", result.Status, result.Message, tt.want)
			}
			if result.Details["entries"] != tt.entries {
				t.Errorf("entries = %v, want %d", result.Details["entries"], tt.entries)
			}
			if tt.want == StatusDegraded && !strings.Contains(result.Message, "abi cache holds") {
				t.Errorf("Message = %q", result.Message)
			}
		})
	}
}

func TestMemoryChecker_HeapVerdictWins(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{
		MaxAlloc:   1024,
		Entries:    func() int { return 10 },
		MaxEntries: 5,
	})

	result := c.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want the unhealthy heap verdict over the entry limit", result.Status)
	}
	if result.Details["entries"] != 10 {
		t.Errorf("entries = %v, want 10", result.Details["entries"])
	}
}

func TestMemoryChecker_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewMemoryChecker(MemoryCheckerConfig{}).Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, context.Canceled) {
		t.Errorf("Error = %v, want context.Canceled", result.Error)
	}
}
