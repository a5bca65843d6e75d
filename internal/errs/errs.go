// Package errs defines the error taxonomy shared across the platform.
//
// Every failure a handler can surface maps onto one of the sentinel values
// below; callers classify with errors.Is and wrap with fmt.Errorf("%w").
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound signals an absent persona, conversation, or user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument signals rejected caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated signals a missing, expired, or malformed session token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConflict signals a uniqueness violation. Conversation-creation races
	// recover from it locally; it reaches a handler only for duplicate users.
	ErrConflict = errors.New("conflict")

	// ErrBackendFailure signals a generation backend or mid-stream transport error.
	ErrBackendFailure = errors.New("generation backend failure")

	// ErrStoreUnavailable signals durable or ephemeral store I/O failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted detail message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// StoreUnavailable wraps an underlying store error.
func StoreUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// BackendFailure wraps an underlying generation backend error.
func BackendFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendFailure, err)
}

// HTTPStatus maps a taxonomy error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrBackendFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
