package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/observe"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds accepted client request IDs.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromContext returns the request ID set by the server, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID keeps a sane client X-Request-ID or assigns a new UUID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// statusRecorder captures the status code and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// withLogging logs one line per request and turns handler panics into 500s.
func withLogging(logger observe.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error(r.Context(), "handler panic",
					observe.Field{Key: "request_id", Value: RequestIDFromContext(r.Context())},
					observe.Field{Key: "panic", Value: p},
				)
				if rec.status == 0 {
					writeJSON(rec, http.StatusInternalServerError, errorBody{
						Error:     errorDetail{Code: "internal", Message: http.StatusText(http.StatusInternalServerError)},
						RequestID: RequestIDFromContext(r.Context()),
					})
				}
			}

			fields := []observe.Field{
				{Key: "request_id", Value: RequestIDFromContext(r.Context())},
				{Key: "method", Value: r.Method},
				{Key: "path", Value: r.URL.Path},
				{Key: "status", Value: rec.status},
				{Key: "bytes", Value: rec.bytes},
				{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
			}
			if principal := principalOf(r); principal != "" {
				fields = append(fields, observe.Field{Key: "principal", Value: principal})
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "http request", fields...)
			} else {
				logger.Info(r.Context(), "http request", fields...)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// principalSlot lets the auth middleware, which runs deeper in the chain,
// report the principal back to the logging middleware.
type principalSlot struct {
	principal string
}

type principalSlotKey struct{}

func principalOf(r *http.Request) string {
	if slot, ok := r.Context().Value(principalSlotKey{}).(*principalSlot); ok {
		return slot.principal
	}
	return ""
}

// withPrincipalSlot installs the slot withAuth fills.
func withPrincipalSlot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), principalSlotKey{}, &principalSlot{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recordPrincipal copies the authenticated principal into the slot.
func recordPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slot, ok := r.Context().Value(principalSlotKey{}).(*principalSlot); ok {
			slot.principal = auth.PrincipalFromContext(r.Context())
		}
		next.ServeHTTP(w, r)
	})
}
