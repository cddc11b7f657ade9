// Package apperr defines the domain error vocabulary shared by the
// use-cases. Errors carry a kind that the transport layer maps to a
// response code; anything without a kind is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error
type Kind string

const (
	KindValidation      Kind = "VALIDATION_FAILED"
	KindAccessDenied    Kind = "ACCESS_DENIED"
	KindConflict        Kind = "CONFLICT"
	KindPaymentRequired Kind = "PAYMENT_REQUIRED"
	KindTimeout         Kind = "TIMEOUT"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindInternal        Kind = "INTERNAL"
)

// Error is a domain error with a kind, a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error of the given kind around a cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind of err, or KindInternal when err carries none
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Internalize passes domain errors through unchanged and wraps anything
// else (repository faults, unexpected failures) as internal. Use-cases
// call this once at their boundary.
func Internalize(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(KindInternal, message, err)
}
