package auth

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/jonwraymond/abicache/secret"
)

// Config describes the service's authentication and authorization setup.
// Secret-bearing fields accept ${ENV} and secretref: values.
type Config struct {
	// AllowAnonymous admits requests without credentials under
	// AnonymousRole.
	AllowAnonymous bool `json:"allowAnonymous,omitempty"`

	// APIKeyHeader overrides DefaultAPIKeyHeader.
	APIKeyHeader string `json:"apiKeyHeader,omitempty"`

	// APIKeys are plain keys (after secret resolution), hashed at Build.
	APIKeys []APIKeyConfig `json:"apiKeys,omitempty"`

	// JWT enables bearer tokens when set.
	JWT *JWTSettings `json:"jwt,omitempty"`

	// RBAC configures roles. When Roles is empty every authenticated
	// request is allowed. Unless configured, AnonymousRole may read and list.
	RBAC RBACConfig `json:"rbac,omitempty"`
}

// APIKeyConfig is one configured API key.
type APIKeyConfig struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Principal string    `json:"principal"`
	Roles     []string  `json:"roles,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// JWTSettings configures HMAC bearer tokens.
type JWTSettings struct {
	Secret     string `json:"secret"`
	Issuer     string `json:"issuer,omitempty"`
	Audience   string `json:"audience,omitempty"`
	RolesClaim string `json:"rolesClaim,omitempty"`
}

// Stack is the result of Build.
type Stack struct {
	Authenticator  Authenticator
	Authorizer     Authorizer
	AllowAnonymous bool
}

// Build resolves secrets and assembles the authenticator chain (API key
// first, then JWT) and the authorizer.
func Build(ctx context.Context, cfg Config, resolver *secret.Resolver) (*Stack, error) {
	var auths []Authenticator

	if len(cfg.APIKeys) > 0 {
		store := NewMemoryAPIKeyStore()
		for i, k := range cfg.APIKeys {
			key, err := resolver.ResolveValue(ctx, k.Key)
			if err != nil {
				return nil, fmt.Errorf("auth: api key %d (%s): %w", i, k.ID, err)
			}
			if key == "" || k.Principal == "" {
				return nil, fmt.Errorf("%w: api key %d needs key and principal", ErrInvalidConfig, i)
			}
			store.Add(&APIKeyInfo{
				ID:        k.ID,
				KeyHash:   HashAPIKey(key),
				Principal: k.Principal,
				Roles:     k.Roles,
				ExpiresAt: k.ExpiresAt,
			})
		}
		auths = append(auths, NewAPIKeyAuthenticator(cfg.APIKeyHeader, store))
	}

	if cfg.JWT != nil {
		key, err := resolver.ResolveValue(ctx, cfg.JWT.Secret)
		if err != nil {
			return nil, fmt.Errorf("auth: jwt secret: %w", err)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: jwt secret is empty", ErrInvalidConfig)
		}
		auths = append(auths, NewJWTAuthenticator(JWTConfig{
			Issuer:     cfg.JWT.Issuer,
			Audience:   cfg.JWT.Audience,
			RolesClaim: cfg.JWT.RolesClaim,
			Leeway:     30 * time.Second,
		}, HMACKey(key)))
	}

	if len(auths) == 0 && !cfg.AllowAnonymous {
		return nil, fmt.Errorf("%w: no credentials configured and anonymous access disabled", ErrInvalidConfig)
	}

	stack := &Stack{AllowAnonymous: cfg.AllowAnonymous}
	if len(auths) > 0 {
		stack.Authenticator = NewCompositeAuthenticator(auths...)
	}
	stack.Authorizer = buildAuthorizer(cfg.RBAC)
	return stack, nil
}

// anonymousReadOnly is the default grant for AnonymousRole.
var anonymousReadOnly = RoleConfig{
	Permissions: []string{ResourceTypeABI + ":*:" + ActionRead, ResourceTypeABI + ":*:" + ActionList},
}

func buildAuthorizer(cfg RBACConfig) Authorizer {
	if len(cfg.Roles) == 0 {
		anon := NewRBACAuthorizer(RBACConfig{Roles: map[string]RoleConfig{AnonymousRole: anonymousReadOnly}})
		return AuthorizerFunc(func(ctx context.Context, req *AuthzRequest) error {
			if req.Subject == nil || req.Subject.IsAnonymous() {
				return anon.Authorize(ctx, req)
			}
			return nil
		})
	}
	if _, ok := cfg.Roles[AnonymousRole]; !ok {
		roles := maps.Clone(cfg.Roles)
		roles[AnonymousRole] = anonymousReadOnly
		cfg.Roles = roles
	}
	return NewRBACAuthorizer(cfg)
}

// Middleware returns the HTTP middleware for this stack.
func (s *Stack) Middleware(onError ErrorHandler) func(http.Handler) http.Handler {
	return Middleware(MiddlewareConfig{
		Authenticator:  s.Authenticator,
		AllowAnonymous: s.AllowAnonymous,
		OnError:        onError,
	})
}
