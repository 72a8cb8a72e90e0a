package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSelection = errors.New("invalid cart selection")
	ErrInvalidProduct   = errors.New("invalid product data")
	ErrInvalidQuery     = errors.New("invalid catalog query")
)

// ValidationError names the offending field. It unwraps to Kind so callers
// can match with errors.Is.
type ValidationError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func selectionError(field, reason string) error {
	return &ValidationError{Kind: ErrInvalidSelection, Field: field, Reason: reason}
}

func productError(field, reason string) error {
	return &ValidationError{Kind: ErrInvalidProduct, Field: field, Reason: reason}
}
