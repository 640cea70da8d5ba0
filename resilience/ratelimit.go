package resilience

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// Rate is requests per second. Default 100.
	Rate float64

	// Burst is the bucket size. Default 10.
	Burst int

	// WaitOnLimit makes Execute queue for a token instead of failing fast.
	WaitOnLimit bool

	// MaxWait caps how long a queued call waits. Default 1s.
	MaxWait time.Duration
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.Rate <= 0 {
		c.Rate = 100
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
	return c
}

// RateLimiter is a token bucket in front of the upstream. The bucket starts
// full.
type RateLimiter struct {
	config RateLimiterConfig
	lim    *rate.Limiter
	now    func() time.Time
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	cfg = cfg.withDefaults()
	return &RateLimiter{
		config: cfg,
		lim:    rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		now:    time.Now,
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool { return rl.AllowN(1) }

// AllowN takes n tokens if all n are available, and none otherwise.
func (rl *RateLimiter) AllowN(n int) bool {
	return rl.lim.AllowN(rl.now(), n)
}

// Tokens is the number of tokens available now.
func (rl *RateLimiter) Tokens() float64 {
	return rl.lim.TokensAt(rl.now())
}

// Wait blocks for one token, up to MaxWait.
func (rl *RateLimiter) Wait(ctx context.Context) error { return rl.WaitN(ctx, 1) }

// WaitN blocks until n tokens are available. It gives up with
// ErrRateLimitExceeded when that would take longer than MaxWait, and with a
// context error when ctx ends or its deadline is too near.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	limit := time.Now().Add(rl.config.MaxWait)
	waitCtx, cancel := context.WithDeadline(ctx, limit)
	defer cancel()

	if rl.lim.WaitN(waitCtx, n) == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := ctx.Deadline(); ok && d.Before(limit) {
		return fmt.Errorf("resilience: rate limit wait passes deadline: %w", context.DeadlineExceeded)
	}
	return rl.rejection(n)
}

// rejection carries how long the bucket needs to hold n tokens again.
func (rl *RateLimiter) rejection(n int) error {
	deficit := float64(n) - rl.Tokens()
	after := time.Duration(max(deficit, 0) / rl.config.Rate * float64(time.Second))
	return &RetryAfterError{Err: ErrRateLimitExceeded, After: after}
}

// Execute runs op once a token is taken. A rejection is a *RetryAfterError
// wrapping ErrRateLimitExceeded.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	switch {
	case rl.config.WaitOnLimit:
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	case !rl.Allow():
		return rl.rejection(1)
	}
	return op(ctx)
}
