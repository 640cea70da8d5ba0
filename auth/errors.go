package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")

	// ErrInvalidConfig is returned by Build for unusable settings.
	ErrInvalidConfig = errors.New("auth: invalid config")
)

// IsAuthenticationError reports whether err means the caller could not be
// identified.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}
