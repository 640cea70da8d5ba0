package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport matches every error returned by Client requests.
	ErrTransport = errors.New("chain: transport error")

	// ErrInvalidResponse indicates a 2xx response the client could not read.
	ErrInvalidResponse = errors.New("chain: invalid response")

	// ErrInvalidConfig indicates a client that cannot be built.
	ErrInvalidConfig = errors.New("chain: invalid config")
)

// APIError is a non-2xx answer from the chain API.
type APIError struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Code is the nodeos exception code (error.code), if present.
	Code int64

	// Name is the nodeos exception name, e.g. "account_query_exception".
	Name string

	// Message is the exception description.
	Message string

	// Details are the detail messages nodeos attached, in order.
	Details []string
}

// Error returns the error message.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chain: http %d", e.StatusCode)
	if e.Name != "" {
		fmt.Fprintf(&b, " %s", e.Name)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " (%s)", e.Details[0])
	}
	return b.String()
}

// Is reports whether this error matches the target.
func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}

// ClientFault reports whether the request itself was rejected, as opposed
// to the node failing. nodeos answers 500 for bad queries, so the exception
// name is consulted too.
func (e *APIError) ClientFault() bool {
	if e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests {
		return true
	}
	return e.Name == "name_type_exception" || strings.HasSuffix(e.Name, "_query_exception")
}

// IsUnknownAccount reports whether err says the account does not exist.
func IsUnknownAccount(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Name == "account_query_exception"
}

// IsUpstreamFailure reports whether err should count against the chain
// endpoint, for use as resilience.CircuitBreakerConfig.IsFailure. Client
// faults and caller cancellation do not count.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.ClientFault()
	}
	return true
}
