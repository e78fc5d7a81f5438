// Package errors provides structured error types for flowkeeper.
//
// The graph engine itself never fails: connection and item rejections are
// values (see packages connect and command). This package covers the edges of
// the system where real failures happen:
//   - decoding persisted snapshots and layout records
//   - storage backends
//   - configuration loading
//   - the HTTP API
//
// # Error Codes
//
// Codes are stable strings that the API returns to clients:
//   - INVALID_*: input validation failures
//   - *_NOT_FOUND: missing projects, graphs or nodes
//   - STORAGE_ERROR, CONFIG_ERROR: infrastructure failures
//   - INTERNAL_ERROR: anything unexpected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeGraphNotFound, "graph %q not found", id)
//	if errors.Is(err, errors.ErrCodeGraphNotFound) {
//	    // Handle missing graph
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "failed to write %s", key)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidSnapshot    Code = "INVALID_SNAPSHOT"
	ErrCodeInvalidKey         Code = "INVALID_KEY"
	ErrCodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeGraphNotFound Code = "GRAPH_NOT_FOUND"
	ErrCodeNodeNotFound  Code = "NODE_NOT_FOUND"

	// Engine rejections surfaced through the API
	ErrCodeRejected Code = "REJECTED"

	// Infrastructure errors
	ErrCodeStorage Code = "STORAGE_ERROR"
	ErrCodeConfig  Code = "CONFIG_ERROR"

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

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidSnapshot, ErrCodeInvalidKey, ErrCodeUnsupportedVersion:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeGraphNotFound, ErrCodeNodeNotFound:
		return http.StatusNotFound
	case ErrCodeRejected:
		return http.StatusConflict
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	case ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
