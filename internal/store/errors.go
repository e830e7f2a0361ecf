package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a key does not exist or has expired.
	// BLPop also returns it when the wait times out with nothing to pop.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable is returned when the backing store cannot be reached.
	// Check the wrapped error for the driver-level cause.
	ErrUnavailable = errors.New("store unavailable")

	// ErrClosed is returned by drivers after Close has been called.
	ErrClosed = fmt.Errorf("%w: store closed", ErrUnavailable)
)

// IsNotFoundError reports whether err is (or wraps) ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailableError reports whether err is (or wraps) ErrUnavailable.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Key       string // The key or list the operation targeted
	Operation string // The operation that failed (e.g., "get", "blpop")
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Operation, e.Key)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError for the given operation and key.
func NewStoreError(operation, key string, err error) *StoreError {
	return &StoreError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}
