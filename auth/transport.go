package auth

import (
	"net/http"
	"time"
)

// ErrorHandler writes the response for a request that failed authentication.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Authenticator validates credentials. Nil treats every request as
	// carrying no credentials.
	Authenticator Authenticator

	// AllowAnonymous admits requests without credentials as
	// AnonymousIdentity. Requests with bad credentials are still rejected.
	AllowAnonymous bool

	// OnError writes failures. Default: 401 with the error text.
	OnError ErrorHandler
}

// Middleware authenticates each request and attaches the Identity to its
// context.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	onError := cfg.OnError
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := &AuthRequest{Header: r.Header, Path: r.URL.Path}

			if cfg.Authenticator == nil || !cfg.Authenticator.Supports(ctx, req) {
				if !cfg.AllowAnonymous {
					onError(w, r, ErrMissingCredentials)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, AnonymousIdentity())))
				return
			}

			result, err := cfg.Authenticator.Authenticate(ctx, req)
			if err != nil {
				onError(w, r, err)
				return
			}
			if !result.Authenticated {
				onError(w, r, result.Error)
				return
			}
			if err := result.Identity.Valid(time.Now()); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}
