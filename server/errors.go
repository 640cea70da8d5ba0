package server

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/chain"
	"github.com/jonwraymond/abicache/resilience"
)

// ErrBadRequest indicates a request the server cannot parse.
var ErrBadRequest = errors.New("server: bad request")

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"requestId,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps err to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, cache.ErrInvalidKey),
		errors.Is(err, abi.ErrInvalidName),
		errors.Is(err, abi.ErrInvalidABI):
		return http.StatusBadRequest, "invalid_request"
	case auth.IsAuthenticationError(err):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, cache.ErrNotFound),
		errors.Is(err, cache.ErrNoFetcher),
		chain.IsUnknownAccount(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, resilience.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case resilience.IsRejection(err):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, chain.ErrTransport):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError writes err as a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfter(err))
	}
	writeJSON(w, status, errorBody{
		Error:     errorDetail{Code: code, Message: message},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// retryAfter renders the guard's wait in whole seconds, at least one.
func retryAfter(err error) string {
	after, _ := resilience.RetryAfter(err)
	return strconv.Itoa(max(1, int(math.Ceil(after.Seconds()))))
}
