// Package domainerrors defines the error taxonomy used across service
// boundaries. Services translate store-level sentinels into coded errors;
// handlers map codes onto HTTP statuses and stable public codes. A raw
// store error must never cross a service's public interface.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for programmatic handling.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
)

// Error is a coded domain error. Public, when set, is the stable
// machine-readable code surfaced to API callers (e.g. "ORG_NOT_FOUND");
// it defaults per taxonomy code otherwise.
type Error struct {
	Code    Code
	Message string
	Public  string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithPublic sets the stable public code and returns the error for chaining.
func (e *Error) WithPublic(public string) *Error {
	e.Public = public
	return e
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause is
// preserved for logging and errors.Is/As but is not part of the public
// message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// defaultPublic maps taxonomy codes to fallback public codes.
var defaultPublic = map[Code]string{
	CodeValidation:         "VALIDATION_ERROR",
	CodeBadRequest:         "BAD_REQUEST",
	CodeInvalidInput:       "VALIDATION_ERROR",
	CodeNotFound:           "NOT_FOUND",
	CodeConflict:           "CONFLICT",
	CodeUnauthorized:       "UNAUTHORIZED",
	CodeForbidden:          "FORBIDDEN",
	CodeInternal:           "INTERNAL_ERROR",
	CodeInvariantViolation: "INVARIANT_VIOLATION",
	CodeTimeout:            "TIMEOUT",
}

// PublicCode returns the stable machine-readable code for err. Unknown
// errors are reported as internal.
func PublicCode(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return defaultPublic[CodeInternal]
	}
	if de.Public != "" {
		return de.Public
	}
	if public, ok := defaultPublic[de.Code]; ok {
		return public
	}
	return defaultPublic[CodeInternal]
}

// HTTPStatus maps err's code to an HTTP status. Unknown errors map to 500.
func HTTPStatus(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
