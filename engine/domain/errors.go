package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrUnsupportedURL   = errors.New("unsupported video url")
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrInvalidWindow    = errors.New("chunk size must exceed overlap")
	ErrEmptyTranscript  = errors.New("transcript is empty")
	ErrMissingLines     = errors.New("missing or invalid lines")
	ErrNoSegments       = errors.New("transcription returned no segments")
	ErrStoreUnavailable = errors.New("vector store not initialized")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
