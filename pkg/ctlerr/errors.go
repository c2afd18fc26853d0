// Package ctlerr defines the error-kind vocabulary shared by every
// component of the control plane, so that a caller several layers up
// (a worker, an HTTP handler that doesn't exist in this module) can
// recover the right status without string-matching.
package ctlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that need to react differently
// depending on the failure (retry, surface to user, 4xx vs 5xx, ...).
type Kind int

const (
	// Unknown is the zero value; Error values constructed through New
	// always set a real Kind, so Unknown only appears for plain errors
	// that were never wrapped.
	Unknown Kind = iota
	Validation
	AlreadyExists
	NotFound
	Unprocessable
	ServiceUnavailable
	Forbidden
	Drycc
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case AlreadyExists:
		return "already_exists"
	case NotFound:
		return "not_found"
	case Unprocessable:
		return "unprocessable"
	case ServiceUnavailable:
		return "service_unavailable"
	case Forbidden:
		return "forbidden"
	case Drycc:
		return "drycc"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every package in this module
// returns for business-rule and boundary failures.
type Error struct {
	kind   Kind
	detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.detail, e.cause)
	}
	return e.detail
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the kind this Error was built with.
func (e *Error) Kind() Kind { return e.kind }

// Detail returns the user-facing message without the wrapped cause.
func (e *Error) Detail() string { return e.detail }

// New builds an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{kind: kind, detail: detail}
}

// Newf builds an Error of the given kind with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and detail to an existing error without losing it.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{kind: kind, detail: detail, cause: cause}
}

// As reports whether err is, or wraps, a *Error, and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err (Unknown if err is not a *Error).
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.kind
	}
	return Unknown
}

// Is reports whether err is, or wraps, an Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind to the status code spec.md §7 assigns it.
// pkg/api's (unimplemented) router is the intended caller; kept here
// so any future transport uses one source of truth.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return 400
	case AlreadyExists:
		return 409
	case NotFound:
		return 404
	case Unprocessable:
		return 422
	case ServiceUnavailable:
		return 503
	case Forbidden:
		return 403
	case Drycc:
		return 400
	default:
		return 500
	}
}
