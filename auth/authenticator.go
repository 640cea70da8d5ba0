package auth

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator turns request credentials into an Identity.
//
// A rejected credential is reported in the AuthResult. The error return is
// reserved for failures to check at all, such as an unreachable key store.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Name() string

	// Supports reports whether req carries a credential of this kind.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest is the part of an HTTP request authenticators look at.
type AuthRequest struct {
	Header http.Header

	// Path is only used in log lines.
	Path string
}

// Credential returns the trimmed first value of header name. Both canonical
// and verbatim keys are tried, so hand-built header maps work too.
func (r *AuthRequest) Credential(name string) string {
	v := r.Header.Get(name)
	if v == "" {
		if values := r.Header[name]; len(values) > 0 {
			v = values[0]
		}
	}
	return strings.TrimSpace(v)
}

// AuthResult is the outcome of checking one credential.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity

	// Error says why the credential was rejected.
	Error error

	// Method is the name of the deciding authenticator.
	Method string
}

// Accept is the result for a credential that established id.
func Accept(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: string(id.Method)}
}

// Reject is the result for a credential the named authenticator refused.
func Reject(method string, err error) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
