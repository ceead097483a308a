package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// AI provider errors

var (
	// ErrConfig indicates an unknown capability or a broken provider selection
	ErrConfig = errors.New("provider configuration error")

	// ErrTransport indicates a failed HTTP exchange with a provider
	// (non-2xx status, timeout, connection failure)
	ErrTransport = errors.New("provider transport error")

	// ErrShape indicates a provider response that parsed as JSON but matched no known shape
	ErrShape = errors.New("unrecognized provider response shape")

	// ErrSoftFailure indicates a 2xx response carrying a semantic failure signal
	ErrSoftFailure = errors.New("provider reported failure")

	// ErrAttemptsExhausted indicates a retryable failure that survived every retry
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
)

// Ledger errors

var (
	// ErrLedgerWrite indicates a failed cost lookup or statistics write.
	// Cost tracking is best-effort: callers log this and move on.
	ErrLedgerWrite = errors.New("ledger write failed")
)

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
