package resilience

import (
	"errors"
	"slices"
	"time"
)

// Errors returned by the guards themselves, never by the guarded call.
var (
	ErrCircuitOpen       = errors.New("resilience: circuit breaker is open")
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
	ErrBulkheadFull      = errors.New("resilience: bulkhead at capacity")
	ErrTimeout           = errors.New("resilience: operation timed out")
)

var rejections = []error{ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, ErrTimeout}

// IsRejection reports whether a guard refused or abandoned the call. The
// upstream may be fine; the caller should back off and try again.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	return slices.ContainsFunc(rejections, func(target error) bool {
		return errors.Is(err, target)
	})
}

// RetryAfterError is a rejection from a guard that can tell when it will
// admit calls again. Its message is the wrapped sentinel's.
type RetryAfterError struct {
	Err   error
	After time.Duration
}

func (e *RetryAfterError) Error() string { return e.Err.Error() }
func (e *RetryAfterError) Unwrap() error { return e.Err }

// RetryAfter returns the wait a rejecting guard attached to err.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.After, true
	}
	return 0, false
}
