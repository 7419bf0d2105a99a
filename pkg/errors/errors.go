// Package errors provides structured error types for gdsfill.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the fill pipeline
//   - Machine-readable error codes for programmatic handling
//   - Separation of fatal configuration faults from tile-local geometry faults
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - CONFIG_*, UNKNOWN_*: Rule model and process kit failures (fatal)
//   - INVALID_*: Input validation failures
//   - GEOMETRY_FAULT: Geometry engine or tile file failures (tile-local)
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownLayer, "layer %q is not defined", name)
//	if errors.IsConfig(err) {
//	    // Abort the whole run
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeGeometryFault, origErr, "read tile %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors. All of them abort a run before tile work starts.
	ErrCodeConfig           Code = "CONFIG_ERROR"
	ErrCodeUnknownLayer     Code = "UNKNOWN_LAYER"
	ErrCodeUnknownAlgorithm Code = "UNKNOWN_ALGORITHM"
	ErrCodeUnknownProcess   Code = "UNKNOWN_PROCESS"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidLayout Code = "INVALID_LAYOUT"

	// Resource errors
	ErrCodeFileNotFound     Code = "FILE_NOT_FOUND"
	ErrCodeChecksumMismatch Code = "CHECKSUM_MISMATCH"

	// Geometry engine errors. These are isolated to a single tile.
	ErrCodeGeometryFault Code = "GEOMETRY_FAULT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// configCodes is the set of codes that are treated as fatal configuration faults.
var configCodes = map[Code]bool{
	ErrCodeConfig:           true,
	ErrCodeUnknownLayer:     true,
	ErrCodeUnknownAlgorithm: true,
	ErrCodeUnknownProcess:   true,
}

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
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsConfig reports whether err is a configuration fault anywhere in its chain.
// Configuration faults are fatal for a whole run.
func IsConfig(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if configCodes[e.Code] {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsGeometryFault reports whether err is a tile-local geometry fault.
func IsGeometryFault(err error) bool {
	return Is(err, ErrCodeGeometryFault)
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
