package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/abicache/secret"
)

func TestBuild(t *testing.T) {
	t.Setenv("ABICACHE_TEST_JWT_SECRET", string(testSigningKey))
	t.Setenv("ABICACHE_TEST_API_KEY", "indexer-key")

	resolver := secret.NewResolver(true, &secret.EnvProvider{Prefix: "ABICACHE_TEST_"})
	stack, err := Build(context.Background(), Config{
		APIKeys: []APIKeyConfig{{ID: "idx", Key: "secretref:env:API_KEY", Principal: "indexer", Roles: []string{"reader"}}},
		JWT:     &JWTSettings{Secret: "${ABICACHE_TEST_JWT_SECRET}", Issuer: "abicache", Audience: "abi-api"},
		RBAC: RBACConfig{Roles: map[string]RoleConfig{
			"reader": {Permissions: []string{"abi:*:read"}},
			"writer": {Permissions: []string{"abi:*:write"}, Inherits: []string{"reader"}},
		}},
	}, resolver)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx := context.Background()
	keyResult, err := stack.Authenticator.Authenticate(ctx, &AuthRequest{Header: headers(DefaultAPIKeyHeader, "indexer-key")})
	if err != nil || !keyResult.Authenticated || keyResult.Identity.Principal != "indexer" {
		t.Fatalf("api key auth = %+v, %v", keyResult, err)
	}

	token := signToken(t, validClaims())
	jwtResult, err := stack.Authenticator.Authenticate(ctx, &AuthRequest{Header: headers("Authorization", "Bearer "+token)})
	if err != nil || !jwtResult.Authenticated || jwtResult.Identity.Method != AuthMethodJWT {
		t.Fatalf("jwt auth = %+v, %v", jwtResult, err)
	}

	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(jwtResult.Identity, "eosio", ActionWrite)); err != nil {
		t.Errorf("writer denied write: %v", err)
	}
	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(keyResult.Identity, "eosio", ActionWrite)); !errors.Is(err, ErrForbidden) {
		t.Errorf("reader write = %v, want ErrForbidden", err)
	}
	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(AnonymousIdentity(), "eosio", ActionRead)); err != nil {
		t.Errorf("anonymous read denied: %v", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"nothing configured", Config{}, ErrInvalidConfig},
		{"key without principal", Config{APIKeys: []APIKeyConfig{{ID: "a", Key: "k"}}}, ErrInvalidConfig},
		{"empty jwt secret", Config{JWT: &JWTSettings{}}, ErrInvalidConfig},
		{"missing env", Config{JWT: &JWTSettings{Secret: "${ABICACHE_TEST_UNSET_VAR}"}}, secret.ErrMissingEnv},
		{"unknown provider", Config{APIKeys: []APIKeyConfig{{ID: "a", Key: "secretref:vault:x", Principal: "p"}}}, secret.ErrProviderNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.cfg, secret.NewResolver(true))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_AnonymousOnly(t *testing.T) {
	stack, err := Build(context.Background(), Config{AllowAnonymous: true}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if stack.Authenticator != nil {
		t.Error("Authenticator should be nil without credentials")
	}

	ctx := context.Background()
	anon := AnonymousIdentity()
	for _, action := range []string{ActionRead, ActionList} {
		if err := stack.Authorizer.Authorize(ctx, NewABIRequest(anon, "alice", action)); err != nil {
			t.Errorf("anonymous %s denied: %v", action, err)
		}
	}
	for _, action := range []string{ActionWrite, ActionPrefetch} {
		if err := stack.Authorizer.Authorize(ctx, NewABIRequest(anon, "alice", action)); !errors.Is(err, ErrForbidden) {
			t.Errorf("anonymous %s = %v, want ErrForbidden", action, err)
		}
	}
	known := &Identity{Principal: "ops", Method: AuthMethodAPIKey}
	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(known, "alice", ActionWrite)); err != nil {
		t.Errorf("authenticated write denied without roles: %v", err)
	}

	rec := httptest.NewRecorder()
	stack.Middleware(nil)(echoPrincipal()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("middleware = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBuild_CustomAnonymousRole(t *testing.T) {
	stack, err := Build(context.Background(), Config{
		AllowAnonymous: true,
		RBAC: RBACConfig{Roles: map[string]RoleConfig{
			AnonymousRole: {Permissions: []string{"abi:eosio*:read"}},
		}},
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx := context.Background()
	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(AnonymousIdentity(), "eosio.token", ActionRead)); err != nil {
		t.Errorf("configured anonymous read denied: %v", err)
	}
	if err := stack.Authorizer.Authorize(ctx, NewABIRequest(AnonymousIdentity(), "alice", ActionRead)); err == nil {
		t.Error("configured anonymous role should override default grant")
	}
}
