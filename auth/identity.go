package auth

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// AuthMethod names the credential an Identity was established with.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// AnonymousRole is the role carried by unauthenticated callers.
const AnonymousRole = "anonymous"

// Identity is the caller behind a request.
type Identity struct {
	// Principal is a service name, key owner or JWT subject.
	Principal string
	Roles     []string
	Method    AuthMethod

	// Claims holds the JWT claims, or the API key metadata plus key_id.
	Claims map[string]any

	// ExpiresAt is zero for credentials that never expire.
	ExpiresAt time.Time
}

// AnonymousIdentity returns a fresh identity holding only AnonymousRole.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: AnonymousRole,
		Roles:     []string{AnonymousRole},
		Method:    AuthMethodAnonymous,
	}
}

func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsAnonymous reports whether id was not established from a credential.
func (id *Identity) IsAnonymous() bool {
	return id.Principal == "" || id.Method == AuthMethodAnonymous
}

// Valid returns ErrTokenExpired when the credential expired before now.
func (id *Identity) Valid(now time.Time) error {
	if id.ExpiresAt.IsZero() || !now.After(id.ExpiresAt) {
		return nil
	}
	return fmt.Errorf("%w: %s expired at %s", ErrTokenExpired, id.Principal, id.ExpiresAt.UTC().Format(time.RFC3339))
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// PrincipalFromContext is the principal of IdentityFromContext, or "".
func PrincipalFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Principal
	}
	return ""
}
