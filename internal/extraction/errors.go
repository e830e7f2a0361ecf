package extraction

import "errors"

var (
	// ErrExtractionFailed is returned when a backend cannot produce text.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInvalidDocument is returned for input that is not a readable PDF.
	ErrInvalidDocument = errors.New("invalid PDF document")
)
