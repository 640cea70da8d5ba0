package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/abicache/auth"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/health"
	"github.com/jonwraymond/abicache/observe"
)

const (
	// DefaultMaxBodyBytes limits PUT and prefetch bodies.
	DefaultMaxBodyBytes = 4 << 20

	// DefaultMaxPrefetch limits the accounts of one prefetch request.
	DefaultMaxPrefetch = 256

	// DefaultShutdownTimeout bounds graceful shutdown in ListenAndServe.
	DefaultShutdownTimeout = 15 * time.Second
)

// Server serves the ABI cache API.
type Server struct {
	cache       *cache.SchemaCache
	auth        *auth.Stack
	health      *health.Aggregator
	metrics     http.Handler
	logger      observe.Logger
	maxBody     int64
	maxPrefetch int
	handler     http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithAuth protects the API routes with stack. Without it every request is
// served as the anonymous identity and allowed.
func WithAuth(stack *auth.Stack) Option {
	return func(s *Server) {
		s.auth = stack
	}
}

// WithHealth mounts agg's endpoints (/healthz, /readyz, /health).
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		s.health = agg
	}
}

// WithMetricsHandler mounts h at GET /metrics, outside authentication.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithMaxPrefetch overrides DefaultMaxPrefetch.
func WithMaxPrefetch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPrefetch = n
		}
	}
}

// New creates a Server in front of c.
func New(c *cache.SchemaCache, opts ...Option) *Server {
	s := &Server{
		cache:       c,
		logger:      observe.NoopLogger(),
		maxBody:     DefaultMaxBodyBytes,
		maxPrefetch: DefaultMaxPrefetch,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/abi", s.handleList)
	api.HandleFunc("GET /v1/abi/{account}", s.handleGet)
	api.HandleFunc("GET /v1/abi/{account}/raw", s.handleRaw)
	api.HandleFunc("PUT /v1/abi/{account}", s.handlePut)
	api.HandleFunc("POST /v1/abi:prefetch", s.handlePrefetch)

	var protected http.Handler = recordPrincipal(api)
	if s.auth != nil {
		protected = s.auth.Middleware(writeError)(protected)
	}

	root := http.NewServeMux()
	root.Handle("/v1/", protected)
	root.Handle("/v1/abi", protected)
	if s.health != nil {
		health.RegisterHandlers(root, s.health)
	}
	if s.metrics != nil {
		root.Handle("GET /metrics", s.metrics)
	}

	return withRequestID(withPrincipalSlot(withLogging(s.logger, root)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within DefaultShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info(ctx, "server listening", observe.Field{Key: "addr", Value: ln.Addr().String()})

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authorize checks the request identity may perform action on account.
func (s *Server) authorize(r *http.Request, account, action string) error {
	if s.auth == nil || s.auth.Authorizer == nil {
		return nil
	}
	id := auth.IdentityFromContext(r.Context())
	return s.auth.Authorizer.Authorize(r.Context(), auth.NewABIRequest(id, account, action))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
