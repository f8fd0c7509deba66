// Package apperr is the error taxonomy the services return and the transport renders.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marshallshelly/pebble-apps/pkg/runtime"
)

// Kind classifies an error for the caller.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

// Error is an error with a caller-facing kind and message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// RetryAfter is set for rate limited errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing primary or referenced entity, e.g. "Member with id 7 not found".
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with id %v not found", entity, id)}
}

// NotFoundf reports missing data with a message of its own, e.g. an empty result
// that the operation cannot proceed without.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness or business-rule violation.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// RateLimited reports that the caller must wait before retrying.
func RateLimited(retryAfter time.Duration, format string, args ...any) *Error {
	return &Error{Kind: KindRateLimited, Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// FromStore turns a classified database error into a caller-facing one.
// conflict is the message for unique violations, with a generic default; errors that are not
// classified come back unchanged.
func FromStore(err error, conflict string) error {
	var appErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, runtime.ErrDuplicateKey):
		if conflict == "" {
			conflict = "record already exists"
		}
		return &Error{Kind: KindConflict, Message: conflict, Err: err}
	case errors.Is(err, runtime.ErrForeignKeyViolation):
		return &Error{Kind: KindNotFound, Message: "referenced record not found", Err: err}
	case errors.Is(err, runtime.ErrCheckViolation):
		return &Error{Kind: KindValidation, Message: "value violates a constraint", Err: err}
	}
	return err
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
