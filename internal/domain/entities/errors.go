package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuoteData       = errors.New("invalid quote data")
	ErrQuoteNotFound          = errors.New("quote not found")
	ErrInvalidStateTransition = errors.New("invalid quote state transition")
	ErrRetryableAllocation    = errors.New("quote number allocation temporarily unavailable")
	ErrSequenceExhausted      = errors.New("quote number sequence exceeded maximum value")
	ErrUnauthorized           = errors.New("not authorized for quote operation")
	ErrConcurrencyConflict    = errors.New("quote was modified concurrently")
)

// FieldViolation is a single failed field constraint.
type FieldViolation struct {
	Field   string
	Message string
}

func (v FieldViolation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found, not only the first one.
// errors.Is(err, ErrInvalidQuoteData) holds for it.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrInvalidQuoteData.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidQuoteData.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuoteData
}

// Messages returns the violations as "field: message" strings.
func (e *ValidationError) Messages() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.String())
	}
	return out
}

// NewValidationError builds a ValidationError, or returns nil when there is nothing to report.
func NewValidationError(violations ...FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
