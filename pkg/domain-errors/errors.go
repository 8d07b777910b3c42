// Package domainerrors defines the coded error vocabulary shared by services
// and transport. Services attach a Code so handlers can map failures to HTTP
// statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation marks user-correctable input failures. These carry
	// per-field detail and are always surfaced as structured data, never as
	// an opaque 500.
	CodeValidation Code = "validation_failed"

	// CodeNotFound: no request matches the given token, number or email.
	CodeNotFound Code = "not_found"

	// CodeTokenExpired: the token matched a request but its validity window
	// has passed.
	CodeTokenExpired Code = "token_expired"

	// CodeAlreadyValidated: the request behind the token already completed
	// identity validation. Expected on double clicks and retried links.
	CodeAlreadyValidated Code = "already_validated"

	// CodeInvalidTransition: a state-machine precondition failed.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeStoreUnavailable and CodeDeliveryFailed are infrastructure failures
	// from the store and notifier collaborators. They abort the command.
	CodeStoreUnavailable Code = "store_unavailable"
	CodeDeliveryFailed   Code = "delivery_failed"

	CodeUnauthorized Code = "unauthorized"
	CodeRateLimited  Code = "rate_limited"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal"
)

// Error is a coded error with an optional wrapped cause and optional
// per-field validation detail.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

// FieldError names a single invalid field with a human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithFields returns a validation error carrying per-field detail. The field
// order is preserved so callers see failures in form order.
func WithFields(message string, fields []FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode, matching call sites that read as
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// FieldsOf extracts validation detail from an error, if present.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// ToHTTPStatus maps a code to the HTTP status the transport layer responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTokenExpired:
		return http.StatusGone
	case CodeAlreadyValidated, CodeInvalidTransition:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeStoreUnavailable, CodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
