package wildlens

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for retry and breaker decisions.
// Kinds are assigned once at classification time (by the transport client,
// the response processor, or the circuit breaker) and never change as the
// error propagates outward.
type ErrorKind string

const (
	ErrKindNetwork    ErrorKind = "network_error"
	ErrKindTimeout    ErrorKind = "timeout_error"
	ErrKindValidation ErrorKind = "validation_error"
	ErrKindAuth       ErrorKind = "auth_error"
	ErrKindRateLimit  ErrorKind = "rate_limit_error"
	ErrKindAPI        ErrorKind = "api_error"
	ErrKindProcessing ErrorKind = "processing_error"
	ErrKindUnknown    ErrorKind = "unknown_error"
)

// Error is a classified failure. The Retryable flag drives the retry
// manager; SuggestedAction is a human-readable remediation string suitable
// for direct display to users.
type Error struct {
	Kind            ErrorKind
	Message         string
	Code            string // optional machine code (HTTP status, API error code)
	Retryable       bool
	SuggestedAction string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewNetworkError reports a failure to reach the service at all.
func NewNetworkError(message string, cause error) *Error {
	return &Error{
		Kind:            ErrKindNetwork,
		Message:         message,
		Retryable:       true,
		SuggestedAction: "Check your internet connection and try again.",
		cause:           cause,
	}
}

// NewTimeoutError reports a request that did not complete in time.
func NewTimeoutError(message string, cause error) *Error {
	return &Error{
		Kind:            ErrKindTimeout,
		Message:         message,
		Retryable:       true,
		SuggestedAction: "The request took too long. Try again in a moment.",
		cause:           cause,
	}
}

// NewValidationError reports a request the service rejected as malformed.
func NewValidationError(message, code string) *Error {
	return &Error{
		Kind:            ErrKindValidation,
		Message:         message,
		Code:            code,
		Retryable:       false,
		SuggestedAction: "Try a different photo or check the request settings.",
	}
}

// NewAuthError reports a rejected or missing credential.
func NewAuthError(message, code string) *Error {
	return &Error{
		Kind:            ErrKindAuth,
		Message:         message,
		Code:            code,
		Retryable:       false,
		SuggestedAction: "Verify your API key in the settings and try again.",
	}
}

// NewRateLimitError reports a throttled request.
func NewRateLimitError(message, code string) *Error {
	return &Error{
		Kind:            ErrKindRateLimit,
		Message:         message,
		Code:            code,
		Retryable:       true,
		SuggestedAction: "Too many requests. Wait a moment before trying again.",
	}
}

// NewAPIError reports a service-side failure (5xx or an open breaker).
func NewAPIError(message, code string) *Error {
	return &Error{
		Kind:            ErrKindAPI,
		Message:         message,
		Code:            code,
		Retryable:       true,
		SuggestedAction: "The identification service is having trouble. Try again shortly.",
	}
}

// NewProcessingError reports a model response that could not be turned
// into a structured result.
func NewProcessingError(message string, cause error) *Error {
	return &Error{
		Kind:            ErrKindProcessing,
		Message:         message,
		Retryable:       false,
		SuggestedAction: "Retake the photo or try a different image.",
		cause:           cause,
	}
}

// NewUnknownError reports an unclassifiable failure. Retryability is
// decided at the classification site (e.g. unexpected HTTP status >= 500).
func NewUnknownError(message, code string, retryable bool) *Error {
	return &Error{
		Kind:            ErrKindUnknown,
		Message:         message,
		Code:            code,
		Retryable:       retryable,
		SuggestedAction: "Something went wrong. Try again; if the problem persists, contact support.",
	}
}

// AsError returns err as a classified *Error. Errors that were never
// classified are wrapped as unknown_error (non-retryable), except context
// deadline expiry which maps to timeout_error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request deadline exceeded", err)
	}
	return &Error{
		Kind:            ErrKindUnknown,
		Message:         err.Error(),
		Retryable:       false,
		SuggestedAction: "Something went wrong. Try again; if the problem persists, contact support.",
		cause:           err,
	}
}
