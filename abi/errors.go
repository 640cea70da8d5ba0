package abi

import (
	"errors"
	"fmt"
)

// Sentinel errors for ABI construction.
var (
	// ErrInvalidABI indicates malformed ABI input. All *ValidationError values match it.
	ErrInvalidABI = errors.New("abi: invalid abi")

	// ErrInvalidName indicates an account or action name that is not a valid Name.
	ErrInvalidName = errors.New("abi: invalid name")

	// ErrUnsupportedVersion indicates an ABI version string that is not eosio::abi/<major>.<minor>.
	ErrUnsupportedVersion = errors.New("abi: unsupported version")
)

// ValidationError describes why an ABI input was rejected.
type ValidationError struct {
	// Field is the offending field path, if known.
	Field string

	// Reason is a human readable description.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("abi: invalid abi: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("abi: invalid abi: %s", e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidABI
}

// NameError is returned when a string cannot be parsed as a Name.
type NameError struct {
	Input  string
	Reason string
}

// Error returns the error message.
func (e *NameError) Error() string {
	return fmt.Sprintf("abi: invalid name %q: %s", e.Input, e.Reason)
}

// Is reports whether this error matches the target.
func (e *NameError) Is(target error) bool {
	return target == ErrInvalidName
}
