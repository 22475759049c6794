package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the kinds of failure a request can end in
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error represents a caller-visible error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type with the default status code for that type
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Code:    StatusForType(errorType),
	}
}

// Wrap creates an error of the given type that keeps the cause for logging
func Wrap(errorType ErrorType, message string, err error) *Error {
	e := New(errorType, message)
	e.Err = err
	return e
}

// Validation, NotFound, RateLimited, Upstream and Internal are shorthands for New
func Validation(message string) *Error  { return New(ErrorTypeValidation, message) }
func NotFound(message string) *Error    { return New(ErrorTypeNotFound, message) }
func RateLimited(message string) *Error { return New(ErrorTypeRateLimit, message) }

func Upstream(message string, err error) *Error { return Wrap(ErrorTypeUpstream, message, err) }
func Internal(message string, err error) *Error { return Wrap(ErrorTypeInternal, message, err) }

// StatusForType maps an error type to the HTTP status returned to the caller
func StatusForType(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// StatusCode returns the HTTP status for any error, defaulting to 500
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Code != 0 {
			return apiErr.Code
		}
		return StatusForType(apiErr.Type)
	}
	return http.StatusInternalServerError
}

// Detail returns the message safe to show to callers.
// Untyped errors never leak their text.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Internal server error"
}

// IsType reports whether err carries the given type
func IsType(err error, errorType ErrorType) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == errorType
}
