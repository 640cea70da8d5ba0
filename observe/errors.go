package observe

import "errors"

var (
	// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingAccount is returned by AccountMeta.Validate.
	ErrMissingAccount = errors.New("observe: account is required")
)
