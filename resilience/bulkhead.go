package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent sizes a Bulkhead configured without a limit.
const DefaultMaxConcurrent = 10

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	MaxConcurrent int

	// MaxWait is how long Acquire queues for a slot. Zero fails at once.
	MaxWait time.Duration
}

// Bulkhead caps the number of requests in flight to the upstream.
type Bulkhead struct {
	size    int
	maxWait time.Duration
	sem     *semaphore.Weighted

	active   atomic.Int64
	peak     atomic.Int64
	rejected atomic.Int64
}

func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	size := cfg.MaxConcurrent
	if size <= 0 {
		size = DefaultMaxConcurrent
	}
	return &Bulkhead{size: size, maxWait: cfg.MaxWait, sem: semaphore.NewWeighted(int64(size))}
}

// Acquire takes a slot and returns the func that gives it back. It fails
// with ErrBulkheadFull when no slot frees up within MaxWait, or with the
// context's error when ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if !b.sem.TryAcquire(1) {
		if err := b.wait(ctx); err != nil {
			return nil, err
		}
	}

	n := b.active.Add(1)
	for p := b.peak.Load(); n > p && !b.peak.CompareAndSwap(p, n); p = b.peak.Load() {
	}

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			b.active.Add(-1)
			b.sem.Release(1)
		}
	}, nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.maxWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, b.maxWait)
		defer cancel()
		if b.sem.Acquire(waitCtx, 1) == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	b.rejected.Add(1)
	return ErrBulkheadFull
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return op(ctx)
}

// BulkheadMetrics is a snapshot of a Bulkhead.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

func (b *Bulkhead) Metrics() BulkheadMetrics {
	active := int(b.active.Load())
	return BulkheadMetrics{
		Active:        active,
		MaxActive:     int(b.peak.Load()),
		Available:     b.size - active,
		MaxConcurrent: b.size,
		Rejected:      b.rejected.Load(),
	}
}
