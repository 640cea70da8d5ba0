package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout is used by a zero Timeout.
const DefaultTimeout = 30 * time.Second

// Timeout bounds one call to an upstream request.
type Timeout time.Duration

// Duration is t, or DefaultTimeout when t is not positive.
func (t Timeout) Duration() time.Duration {
	if t <= 0 {
		return DefaultTimeout
	}
	return time.Duration(t)
}

// Execute runs op under a deadline. If the deadline passes first Execute
// returns ErrTimeout at once and leaves op to notice its context. A
// cancelled parent is reported as the parent's error.
func (t Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeoutCause(ctx, t.Duration(), ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	var err error
	select {
	case err = <-done:
		if err == nil || ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
	}
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrTimeout):
		return ErrTimeout
	case err != nil:
		return err
	default:
		return cause
	}
}

// ExecuteWithTimeout runs op under a one-off Timeout of d.
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	return Timeout(d).Execute(ctx, op)
}
