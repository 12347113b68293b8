// Package envelope provides the uniform result envelope returned by every
// core operation: { data, error, message }. The HTTP layer maps
// error.statusCode onto the response status and forwards the envelope
// verbatim; it performs no further interpretation.
package envelope

import (
	dErrors "custodia/pkg/domain-errors"
)

// ErrorInfo is the wire shape of a failed operation.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Result is the envelope for a T-typed operation. Exactly one of Data and
// Error is non-nil.
type Result[T any] struct {
	Data    *T         `json:"data"`
	Error   *ErrorInfo `json:"error"`
	Message string     `json:"message"`
}

// OK builds a success envelope.
func OK[T any](data T, message string) Result[T] {
	return Result[T]{Data: &data, Message: message}
}

// Fail builds a failure envelope from a domain error. Internal failures are
// reduced to a generic message so store details never reach the caller.
func Fail[T any](err error) Result[T] {
	message := err.Error()
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.PublicCode(err) == "INTERNAL_ERROR" {
		message = "an internal error occurred"
	}
	return Result[T]{
		Error: &ErrorInfo{
			Code:       dErrors.PublicCode(err),
			Message:    message,
			StatusCode: dErrors.HTTPStatus(err),
		},
		Message: message,
	}
}

// StatusCode returns the HTTP status this envelope maps to.
func (r Result[T]) StatusCode() int {
	if r.Error != nil {
		return r.Error.StatusCode
	}
	return 200
}
