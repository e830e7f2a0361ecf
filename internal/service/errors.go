package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/docqueue/internal/task"
)

// Sentinel errors returned by DocumentService.
var (
	// ErrTaskNotFound indicates the task was deleted or has expired.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = task.ErrTaskNotFound

	// ErrQueueFull indicates admission was rejected.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrQueueFull = task.ErrQueueFull

	// ErrResultNotReady indicates the task has not completed yet.
	ErrResultNotReady = errors.New("result not ready")

	// ErrResultMissing indicates a completed task without a stored result.
	ErrResultMissing = errors.New("completed task has no result")
)

// ServiceError wraps unexpected failures with the operation that hit them.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "list_tasks")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("document service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// It returns known sentinel errors directly without wrapping.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{ErrTaskNotFound, ErrQueueFull, ErrResultNotReady, ErrResultMissing} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
