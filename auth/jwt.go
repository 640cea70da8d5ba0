package auth

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures JWTAuthenticator.
type JWTConfig struct {
	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	// PrincipalClaim defaults to "sub".
	PrincipalClaim string

	// RolesClaim defaults to "roles". It may hold a list of strings or a
	// space separated string, as OAuth2 "scope" does.
	RolesClaim string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

// KeyProvider returns the verification key for a token's kid header.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// HMACKey is a single shared secret used for every kid.
type HMACKey []byte

func (k HMACKey) GetKey(context.Context, string) (any, error) {
	return []byte(k), nil
}

var hmacMethods = []string{"HS256", "HS384", "HS512"}

const bearerPrefix = "Bearer "

// JWTAuthenticator accepts HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	principalClaim string
	rolesClaim     string
	keys           KeyProvider
	parser         *jwt.Parser
}

func NewJWTAuthenticator(cfg JWTConfig, keys KeyProvider) *JWTAuthenticator {
	opts := []jwt.ParserOption{jwt.WithValidMethods(hmacMethods), jwt.WithLeeway(cfg.Leeway)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	a := &JWTAuthenticator{
		principalClaim: cfg.PrincipalClaim,
		rolesClaim:     cfg.RolesClaim,
		keys:           keys,
		parser:         jwt.NewParser(opts...),
	}
	if a.principalClaim == "" {
		a.principalClaim = "sub"
	}
	if a.rolesClaim == "" {
		a.rolesClaim = "roles"
	}
	return a
}

func (a *JWTAuthenticator) Name() string { return string(AuthMethodJWT) }

func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.Credential("Authorization"), bearerPrefix)
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	token, ok := strings.CutPrefix(req.Credential("Authorization"), bearerPrefix)
	if token = strings.TrimSpace(token); !ok || token == "" {
		return Reject(a.Name(), ErrMissingCredentials), nil
	}

	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	}); err != nil {
		return Reject(a.Name(), tokenError(err)), nil
	}
	return Accept(a.identity(claims)), nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrInvalidCredentials
	}
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Method: AuthMethodJWT, Claims: maps.Clone(claims)}
	id.Principal, _ = claims[a.principalClaim].(string)

	switch roles := claims[a.rolesClaim].(type) {
	case string:
		id.Roles = strings.Fields(roles)
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = HMACKey(nil)
)
