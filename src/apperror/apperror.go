package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state"
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindInternal          Kind = "internal"
)

// Error is a business failure carrying a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInsufficientStock, KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Internal wraps an unexpected failure (usually from the store).
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// StatusOf maps any error to an HTTP status; unknown errors are 500.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the caller-safe message. Causes of internal errors are
// hidden.
func MessageOf(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	if appErr.Kind == KindInternal {
		return appErr.Message
	}
	return appErr.Error()
}
