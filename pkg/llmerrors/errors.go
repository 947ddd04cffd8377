// Package llmerrors provides structured error classification for LLM API interactions.
//
// Classification is descriptive only: nothing in chaincheck retries on the basis of
// an error type. The type is reported next to the raw error text so an operator can
// tell an authentication problem from an outage at a glance.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of LLM errors.
type ErrorType int8

const (
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, unknown model, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified LLM error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("LLM error (%s): %s: %v", e.Type.String(), e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	case e.Err != nil:
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	default:
		return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified LLM error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified LLM error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, cause error) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// NewErrorWithCause creates a new classified LLM error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// FromStatus classifies an HTTP status code reported by a provider SDK.
// A zero status falls back to message inspection.
func FromStatus(statusCode int, cause error) *Error {
	switch {
	case statusCode == 401 || statusCode == 403:
		return NewErrorWithStatus(ErrorTypeAuth, statusCode, cause)
	case statusCode == 429:
		return NewErrorWithStatus(ErrorTypeRateLimit, statusCode, cause)
	case statusCode == 400 || statusCode == 404 || statusCode == 413 || statusCode == 422:
		return NewErrorWithStatus(ErrorTypeBadPrompt, statusCode, cause)
	case statusCode >= 500 && statusCode <= 599:
		return NewErrorWithStatus(ErrorTypeTransient, statusCode, cause)
	case statusCode == 0:
		return Classify(cause)
	default:
		return NewErrorWithStatus(ErrorTypeUnknown, statusCode, cause)
	}
}

// Classify maps an arbitrary error to a classified error using context state
// and well-known message fragments. Already classified errors are returned as-is.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request canceled")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "connection", "network", "temporary", "eof", "reset", "no such host"):
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	case containsAny(errStr, "rate", "quota", "too many requests"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case containsAny(errStr, "unauthorized", "forbidden", "api key", "auth"):
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	case containsAny(errStr, "invalid", "malformed", "too large", "not found"):
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	default:
		return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified error")
	}
}

func containsAny(s string, fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
