package secret

import "errors"

var (
	// ErrProviderNotRegistered is returned for a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrInvalidRegistration is returned when a provider name or factory is missing.
	ErrInvalidRegistration = errors.New("secret: invalid provider registration")

	// ErrNotFound is returned by providers when a reference does not resolve.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptyValue is returned by a strict resolver when a provider yields "".
	ErrEmptyValue = errors.New("secret: empty value")

	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidRef is returned for malformed references.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
