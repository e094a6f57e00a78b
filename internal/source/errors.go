package source

import "errors"

// Domain-specific errors for source API operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnreachable is returned when the source API cannot be reached.
	ErrUnreachable = errors.New("source: API unreachable")

	// ErrReadFailed is returned when a state read fails.
	ErrReadFailed = errors.New("source: state read failed")

	// ErrEntityNotFound is returned when a polled entity no longer exists.
	ErrEntityNotFound = errors.New("source: entity not found")

	// ErrActionFailed is returned when a service call fails.
	ErrActionFailed = errors.New("source: service call failed")
)
