package auth

import (
	"context"
	"testing"
)

func BenchmarkAPIKeyAuthenticator(b *testing.B) {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{ID: "k", KeyHash: HashAPIKey("bench-key"), Principal: "bench"})
	a := NewAPIKeyAuthenticator("", store)
	req := &AuthRequest{Header: headers(DefaultAPIKeyHeader, "bench-key")}
	ctx := context.Background()

	for b.Loop() {
		_, _ = a.Authenticate(ctx, req)
	}
}

func BenchmarkJWTAuthenticator(b *testing.B) {
	a := NewJWTAuthenticator(JWTConfig{Issuer: "abicache", Audience: "abi-api"}, HMACKey(testSigningKey))
	req := &AuthRequest{Header: headers("Authorization", "Bearer "+signToken(b, validClaims()))}
	ctx := context.Background()

	for b.Loop() {
		_, _ = a.Authenticate(ctx, req)
	}
}

func BenchmarkRBACAuthorizer(b *testing.B) {
	a := testRBAC()
	req := NewABIRequest(&Identity{Principal: "ops", Roles: []string{"operator"}}, "eosio.token", ActionRead)
	ctx := context.Background()

	for b.Loop() {
		_ = a.Authorize(ctx, req)
	}
}
