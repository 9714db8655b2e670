// Package errors provides custom error types for the QC review tool.
//
// This package defines domain-specific errors that tell callers which part of
// the review workflow failed and what recovery is expected. Ingestion and
// validation errors halt the current upload; persistence errors at load time
// degrade to an empty store, and at save time are surfaced to the reviewer.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// IngestionError indicates that an uploaded file could not be read as a table.
//
// This error is returned when:
//   - The upload stream cannot be read
//   - The spreadsheet or delimited text cannot be parsed
//   - The detected header row lies beyond the end of the data
//
// Recovery strategy: Reject the upload, ask the reviewer for another file
type IngestionError struct {
	Message string
	Err     error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("ingestion failed: %s", e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *IngestionError) Unwrap() error {
	return e.Err
}

// NewIngestionError creates a new ingestion error with context
func NewIngestionError(msg string, err error) *IngestionError {
	return &IngestionError{Message: msg, Err: err}
}

// ValidationError indicates that required columns are absent after header
// normalization.
//
// Recovery strategy: Reject the upload and name the missing columns
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("file is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// NewValidationError creates a new validation error naming the missing columns
func NewValidationError(missing []string) *ValidationError {
	return &ValidationError{Missing: missing}
}

// PersistenceError wraps failures reading or writing the durable verdict store.
//
// Op is "load" or "save". A load failure is recovered by starting with an
// empty mapping; a save failure leaves the in-memory verdicts untouched so the
// reviewer can retry.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persistence %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new persistence error for the given operation
func NewPersistenceError(op, path string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// IsIngestion checks if the error chain contains an IngestionError
func IsIngestion(err error) bool {
	var target *IngestionError
	return stderrors.As(err, &target)
}

// IsValidation checks if the error chain contains a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsPersistence checks if the error chain contains a PersistenceError
func IsPersistence(err error) bool {
	var target *PersistenceError
	return stderrors.As(err, &target)
}
