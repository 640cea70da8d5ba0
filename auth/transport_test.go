package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(id.Principal))
	})
}

func testKeyAuthenticator(expiresAt time.Time) Authenticator {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{ID: "k1", KeyHash: HashAPIKey("good-key"), Principal: "indexer", ExpiresAt: expiresAt})
	return NewAPIKeyAuthenticator("", store)
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		cfg        MiddlewareConfig
		key        string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid key",
			cfg:        MiddlewareConfig{Authenticator: testKeyAuthenticator(time.Time{})},
			key:        "good-key",
			wantStatus: http.StatusOK,
			wantBody:   "indexer",
		},
		{
			name:       "missing credentials",
			cfg:        MiddlewareConfig{Authenticator: testKeyAuthenticator(time.Time{})},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "anonymous allowed",
			cfg:        MiddlewareConfig{Authenticator: testKeyAuthenticator(time.Time{}), AllowAnonymous: true},
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "no authenticator anonymous",
			cfg:        MiddlewareConfig{AllowAnonymous: true},
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "bad key rejected even with anonymous",
			cfg:        MiddlewareConfig{Authenticator: testKeyAuthenticator(time.Time{}), AllowAnonymous: true},
			key:        "wrong-key",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired key",
			cfg:        MiddlewareConfig{Authenticator: testKeyAuthenticator(time.Now().Add(-time.Minute))},
			key:        "good-key",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Middleware(tt.cfg)(echoPrincipal())
			req := httptest.NewRequest(http.MethodGet, "/v1/abi/eosio.token", nil)
			if tt.key != "" {
				req.Header.Set(DefaultAPIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddleware_OnError(t *testing.T) {
	var got error
	h := Middleware(MiddlewareConfig{
		Authenticator: testKeyAuthenticator(time.Time{}),
		OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		},
	})(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultAPIKeyHeader, "wrong-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if !errors.Is(got, ErrInvalidCredentials) {
		t.Errorf("OnError got %v, want ErrInvalidCredentials", got)
	}
}
