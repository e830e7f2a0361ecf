package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/docqueue/internal/api/shared"
	"github.com/phrazzld/docqueue/internal/service"
)

// Request validation errors. All map to 400 except ErrFileTooLarge.
var (
	ErrInvalidTaskID = errors.New("invalid task id")
	ErrMissingFile   = errors.New("missing file")
	ErrNotPDF        = errors.New("file is not a pdf")
	ErrInvalidPDF    = errors.New("file content is not a pdf")
	ErrFileTooLarge  = errors.New("file too large")
	ErrValidation    = errors.New("validation failed")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable

	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, ErrInvalidTaskID),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrNotPDF),
		errors.Is(err, ErrInvalidPDF),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found. Task may have expired."
	case errors.Is(err, service.ErrQueueFull):
		return "Queue is full. Please try again later."
	case errors.Is(err, service.ErrResultMissing):
		return "Task marked as completed but no result data found"
	case errors.Is(err, ErrInvalidTaskID):
		return "Invalid task ID"
	case errors.Is(err, ErrMissingFile):
		return "No file uploaded. Send the document in the 'file' form field"
	case errors.Is(err, ErrNotPDF):
		return "Only PDF files are allowed. Please upload a .pdf file"
	case errors.Is(err, ErrInvalidPDF):
		return "Invalid PDF file. File does not appear to be a valid PDF"
	case errors.Is(err, ErrFileTooLarge):
		return "File size too large"
	case errors.Is(err, ErrValidation):
		return "Validation error"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a short message
// naming the offending field.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'uploadMetadata.Filename' Error:Field validation for 'Filename' failed on the 'max' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gt":
		return "too short"
	case "max", "lte":
		return "too long"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// replaces the default safe message for err.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
