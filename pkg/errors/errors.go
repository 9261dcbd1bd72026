// Package errors provides structured error types for flowc.
//
// Errors carry a machine-readable [Code] so the CLI, the HTTP server and
// tests can tell an unparsable flow from a cyclic import graph without
// matching on message text.
//
// # Error Codes
//
//   - PARSE_FAILURE: a source file cannot be parsed (fatal for the run)
//   - UNRESOLVABLE_IMPORT: one or more require() targets cannot be located
//   - CYCLIC_DEPENDENCY: the module graph has no topological order
//   - FILE_NOT_FOUND: a source, bundle or lock file is missing
//   - INVALID_CONFIG / INVALID_GATE_TABLE: configuration input rejected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "flow %q has no path", alias)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeParseFailure, cause, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Analysis errors
	ErrCodeParseFailure       Code = "PARSE_FAILURE"
	ErrCodeUnresolvableImport Code = "UNRESOLVABLE_IMPORT"
	ErrCodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"

	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidGateTable Code = "INVALID_GATE_TABLE"
	ErrCodeInvalidAlias     Code = "INVALID_ALIAS"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Join aggregates errs under a single coded error so a caller sees every
// failure at once. Nil entries are dropped; Join returns nil when none remain.
func Join(code Code, message string, errs ...error) error {
	joined := errors.Join(errs...)
	if joined == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: joined}
}
