package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/api/shared"
)

const (
	// uploadField is the multipart form field carrying the document.
	uploadField = "file"

	// multipartOverhead is the allowance for boundaries and part headers on
	// top of the document size limit.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is buffered in memory before
	// spilling parts to temporary files.
	multipartMemory = 8 << 20
)

var pdfMagic = []byte("%PDF")

// upload is a validated document received from a client.
type upload struct {
	Filename string `validate:"required,max=255"`
	Content  []byte `validate:"required"`
}

// getPathTaskID extracts and parses a task UUID from the URL path.
func getPathTaskID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", ErrInvalidTaskID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", ErrInvalidTaskID, paramName)
	}

	return id, nil
}

// readUpload reads the document from the multipart form and applies the
// admission checks in order: extension, size, then magic bytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrMissingFile, err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingFile, err)
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %q", ErrNotPDF, filename)
	}

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPDF, filename)
	}

	u := &upload{Filename: filename, Content: content}
	if err := shared.ValidateRequest(u); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return u, nil
}
