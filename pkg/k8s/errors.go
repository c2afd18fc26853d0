package k8s

import (
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// notFoundError, conflictError and transportError are the three error
// kinds the Scheduler Client surfaces. They wrap whatever
// the underlying client-go call returned so callers can still use
// errors.Is/As against the apimachinery errors if they need to.
type notFoundError struct{ cause error }

func (e *notFoundError) Error() string { return fmt.Sprintf("not found: %v", e.cause) }
func (e *notFoundError) Unwrap() error { return e.cause }

type conflictError struct{ cause error }

func (e *conflictError) Error() string { return fmt.Sprintf("conflict: %v", e.cause) }
func (e *conflictError) Unwrap() error { return e.cause }

type transportError struct{ cause error }

func (e *transportError) Error() string { return fmt.Sprintf("transport error: %v", e.cause) }
func (e *transportError) Unwrap() error { return e.cause }

// classify maps a client-go error onto the Scheduler Client's three
// error kinds. Returns nil for nil input.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case apierrors.IsNotFound(err):
		return &notFoundError{cause: err}
	case apierrors.IsConflict(err), apierrors.IsAlreadyExists(err):
		return &conflictError{cause: err}
	default:
		return &transportError{cause: err}
	}
}

// IsNotFound reports whether err (as returned by a Client method) is
// the Scheduler Client's NotFound kind.
func IsNotFound(err error) bool {
	var e *notFoundError
	return asError(err, &e)
}

// IsConflict reports whether err is the Scheduler Client's Conflict kind.
func IsConflict(err error) bool {
	var e *conflictError
	return asError(err, &e)
}

func asError[T error](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
