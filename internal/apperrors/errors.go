// Package apperrors is the typed error taxonomy used across every layer of
// the gateway. It generalizes the teacher's ad hoc auth.ErrorResponse/
// sendError pair (internal/auth/auth.go) into a reusable error kind with
// constructors so the HTTP boundary does a single
// errors.As dispatch instead of string-matching error messages.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error codes in the uniform error envelope.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindPaymentRequired Kind = "PAYMENT_REQUIRED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindInternal        Kind = "INTERNAL_ERROR"
	KindProvider        Kind = "PROVIDER_ERROR"
	KindProviderSchema  Kind = "PROVIDER_SCHEMA_ERROR"
	KindTimeout         Kind = "TIMEOUT_ERROR"
)

// StatusCode returns the HTTP status for a Kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindProvider, KindProviderSchema:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error every component above raw persistence
// returns. The client never sees Details unless the Kind is safe to
// expose verbatim: sanitized, never leaking stack traces or raw provider
// bodies.
type Error struct {
	Kind          Kind
	Message       string
	Details       any
	CorrelationID string
	cause         error
	Retryable     bool
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCorrelationID returns a copy of e stamped with id.
func (e *Error) WithCorrelationID(id string) *Error {
	clone := *e
	clone.CorrelationID = id
	return &clone
}

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(message string) *Error   { return newErr(KindValidation, message, nil) }
func Unauthorized(message string) *Error { return newErr(KindUnauthorized, message, nil) }
func Forbidden(message string) *Error    { return newErr(KindForbidden, message, nil) }
func NotFound(message string) *Error     { return newErr(KindNotFound, message, nil) }
func Conflict(message string) *Error     { return newErr(KindConflict, message, nil) }

func RateLimited(message string) *Error {
	e := newErr(KindRateLimited, message, nil)
	e.Retryable = true
	return e
}

func Timeout(message string, cause error) *Error {
	e := newErr(KindTimeout, message, cause)
	e.Retryable = true
	return e
}

// Provider wraps an upstream vendor failure. retryable mirrors the hint
// carried by the provider adapter.
func Provider(message string, retryable bool, cause error) *Error {
	e := newErr(KindProvider, message, cause)
	e.Retryable = retryable
	return e
}

func ProviderSchema(message string, rawPayload any) *Error {
	e := newErr(KindProviderSchema, message, nil)
	e.Details = rawPayload
	return e
}

func Internal(message string, cause error) *Error {
	return newErr(KindInternal, message, cause)
}

// As extracts an *Error from err, following the same pattern as the
// standard library's errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else
// KindInternal — the sanitized fallback.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err, when classified by the orchestrator,
// should trigger another attempt.
func IsRetryable(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	if e.Kind == KindTimeout || e.Kind == KindRateLimited {
		return true
	}
	if e.Kind == KindProvider {
		return e.Retryable
	}
	return false
}
