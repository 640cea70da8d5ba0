package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"sync"
	"time"
)

// DefaultAPIKeyHeader carries API keys unless configured otherwise.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyInfo is a registered API key. The key itself is never stored, only
// its HashAPIKey digest.
type APIKeyInfo struct {
	// ID names the key in claims and logs.
	ID        string
	KeyHash   string
	Principal string
	Roles     []string

	// ExpiresAt is zero for keys that never expire.
	ExpiresAt time.Time

	// Metadata is copied into the identity claims.
	Metadata map[string]any
}

func (info *APIKeyInfo) identity() *Identity {
	claims := maps.Clone(info.Metadata)
	if claims == nil {
		claims = make(map[string]any, 1)
	}
	claims["key_id"] = info.ID
	return &Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    AuthMethodAPIKey,
		Claims:    claims,
		ExpiresAt: info.ExpiresAt,
	}
}

// APIKeyStore finds keys by digest. Lookup returns nil, nil for an unknown
// digest.
type APIKeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*APIKeyInfo, error)
}

// HashAPIKey is the hex SHA-256 digest stores are keyed by.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator accepts keys sent in a request header.
type APIKeyAuthenticator struct {
	header string
	store  APIKeyStore
}

// NewAPIKeyAuthenticator reads keys from header, DefaultAPIKeyHeader when
// empty, and looks them up in store.
func NewAPIKeyAuthenticator(header string, store APIKeyStore) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, store: store}
}

func (a *APIKeyAuthenticator) Name() string { return string(AuthMethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.Credential(a.header) != ""
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	key := req.Credential(a.header)
	if key == "" {
		return Reject(a.Name(), ErrMissingCredentials), nil
	}
	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	switch {
	case err != nil:
		return nil, err
	case info == nil:
		return Reject(a.Name(), ErrInvalidCredentials), nil
	}

	id := info.identity()
	if err := id.Valid(time.Now()); err != nil {
		return Reject(a.Name(), err), nil
	}
	return Accept(id), nil
}

// MemoryAPIKeyStore is an APIKeyStore held in a map. It is safe for
// concurrent use.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewMemoryAPIKeyStore returns a store holding infos.
func NewMemoryAPIKeyStore(infos ...*APIKeyInfo) *MemoryAPIKeyStore {
	s := &MemoryAPIKeyStore{keys: make(map[string]*APIKeyInfo, len(infos))}
	for _, info := range infos {
		s.keys[info.KeyHash] = info
	}
	return s
}

func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[keyHash], nil
}

// Add stores info, replacing any key with the same digest.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) {
	s.mu.Lock()
	s.keys[info.KeyHash] = info
	s.mu.Unlock()
}

func (s *MemoryAPIKeyStore) Remove(keyHash string) {
	s.mu.Lock()
	delete(s.keys, keyHash)
	s.mu.Unlock()
}

func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
