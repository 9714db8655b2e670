package errors

import (
	"fmt"
	"io"
	"testing"
)

func TestIngestionError(t *testing.T) {
	err := NewIngestionError("cannot parse spreadsheet", io.ErrUnexpectedEOF)
	expected := "ingestion failed: cannot parse spreadsheet: unexpected EOF"

	if err.Error() != expected {
		t.Errorf("expected %q but got %q", expected, err.Error())
	}

	if err.Unwrap() != io.ErrUnexpectedEOF {
		t.Error("expected wrapped error to be io.ErrUnexpectedEOF")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError([]string{"Ward", "Zone"})
	expected := "file is missing required columns: Ward, Zone"

	if err.Error() != expected {
		t.Errorf("expected %q but got %q", expected, err.Error())
	}
}

func TestPersistenceError(t *testing.T) {
	err := NewPersistenceError("save", "feedback.json", io.ErrShortWrite)

	if err.Op != "save" {
		t.Errorf("expected op 'save' but got %q", err.Op)
	}

	errorString := err.Error()
	if errorString != "persistence save failed for feedback.json: short write" {
		t.Errorf("unexpected error string %q", errorString)
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		ingestion   bool
		validation  bool
		persistence bool
	}{
		{"ingestion", NewIngestionError("x", nil), true, false, false},
		{"validation", NewValidationError([]string{"Zone"}), false, true, false},
		{"persistence", NewPersistenceError("load", "", io.EOF), false, false, true},
		{"wrapped validation", fmt.Errorf("upload: %w", NewValidationError(nil)), false, true, false},
		{"plain", io.EOF, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIngestion(tt.err); got != tt.ingestion {
				t.Errorf("IsIngestion = %v, want %v", got, tt.ingestion)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation = %v, want %v", got, tt.validation)
			}
			if got := IsPersistence(tt.err); got != tt.persistence {
				t.Errorf("IsPersistence = %v, want %v", got, tt.persistence)
			}
		})
	}
}
