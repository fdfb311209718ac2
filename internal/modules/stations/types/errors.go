package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("station not found")
	ErrConstraint    = errors.New("constraint violation")
	ErrFileNotFound  = errors.New("input file not found")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidValue  = errors.New("invalid value")
)

// ConversionError reports the first CSV cell that could not be converted.
// Line is 1-based and counts the header row.
type ConversionError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s:%d: column %q: cannot convert %q: %v", e.File, e.Line, e.Column, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	return []error{ErrInvalidValue, e.Err}
}
