// Package simerr defines the error kinds shared by every layer of the
// simulator.
//
// All failures a caller can observe are *Error values carrying a Code and a
// human-readable Message. Structural and validation failures are detected
// before tick 0; once a run starts it cannot fail.
package simerr

import (
	"errors"
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// Code categorizes simulator errors.
type Code string

const (
	// CodeParse indicates malformed input structure (bad JSON, wrong types).
	CodeParse Code = "PARSE_ERROR"

	// CodeValidation indicates well-formed input that violates a rule:
	// unknown block type, invalid facing, out-of-bound coordinate, duplicate
	// edit for the same position and tick.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeUnsupportedEdition indicates an edition outside the recognized set.
	CodeUnsupportedEdition Code = "UNSUPPORTED_EDITION"

	// CodeUnknownVersion is a warning: the version was not recognized and the
	// nearest known ruleset was used instead.
	CodeUnknownVersion Code = "UNKNOWN_VERSION"
)

// Error is the error value returned by every simulator entry point.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable cause.
	Message string

	// Pos is the offending block position, when one applies.
	Pos *cube.Pos

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Pos != nil {
		msg = fmt.Sprintf("%s: %s (at %d,%d,%d)", e.Code, e.Message, e.Pos[0], e.Pos[1], e.Pos[2])
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parse creates a ParseError.
func Parse(err error, format string, args ...any) *Error {
	return &Error{Code: CodeParse, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a ValidationError.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationAt creates a ValidationError attributed to a block position.
func ValidationAt(pos cube.Pos, format string, args ...any) *Error {
	p := pos
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...), Pos: &p}
}

// UnsupportedEdition creates the fatal error for an unrecognized edition.
func UnsupportedEdition(edition string, known []string) *Error {
	return &Error{
		Code:    CodeUnsupportedEdition,
		Message: fmt.Sprintf("edition %q is not supported (known: %v)", edition, known),
		Details: map[string]string{"edition": edition},
	}
}

// UnknownVersion creates the non-fatal warning for an unrecognized version.
func UnknownVersion(edition, requested, resolved string) *Error {
	return &Error{
		Code:    CodeUnknownVersion,
		Message: fmt.Sprintf("%s version %q is not known, using nearest ruleset %s", edition, requested, resolved),
		Details: map[string]string{
			"edition":   edition,
			"requested": requested,
			"resolved":  resolved,
		},
	}
}

// CodeOf returns the code of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsParse returns true if err is a ParseError.
func IsParse(err error) bool { return CodeOf(err) == CodeParse }

// IsValidation returns true if err is a ValidationError.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsUnsupportedEdition returns true if err is an UnsupportedEditionError.
func IsUnsupportedEdition(err error) bool { return CodeOf(err) == CodeUnsupportedEdition }

// IsWarning reports whether the error is non-fatal.
func IsWarning(err error) bool { return CodeOf(err) == CodeUnknownVersion }
