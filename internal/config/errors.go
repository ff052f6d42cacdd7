package config

import (
	"errors"
	"fmt"
)

// ErrValidationFailed wraps every error returned by Validate.
var ErrValidationFailed = errors.New("validation failed")

// ParseError locates a TOML decoding failure. Line and Column are 1-based
// and zero when the decoder did not report a position.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError is a setting whose value Validate rejected. Key is the dotted
// TOML key.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Key + ": " + e.Reason
}
