package driver

import (
	"context"
	"errors"
	"fmt"
)

// Class partitions driver failures by how callers must react.
type Class string

const (
	// ClassUnavailable covers network and auth failures reaching the
	// cloud API, including timeouts. Retryable with backoff.
	ClassUnavailable Class = "backend_unavailable"

	// ClassConflict means a resource with the requested name already
	// exists. Fatal to the current attempt; ownership of the existing
	// object is ambiguous and never silently assumed.
	ClassConflict Class = "resource_conflict"

	// ClassNotFound means the referenced backend object does not exist.
	// Lifecycle operations use this to detect drift.
	ClassNotFound Class = "resource_not_found"

	// ClassQuota means the provider refused for quota reasons. Fatal
	// until an operator raises the quota.
	ClassQuota Class = "quota_exceeded"
)

// Error is a classified driver failure.
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Class)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unavailable wraps err as a retryable backend failure.
func Unavailable(op string, err error) error {
	return &Error{Class: ClassUnavailable, Op: op, Err: err}
}

// Conflict wraps err as a name conflict.
func Conflict(op string, err error) error {
	return &Error{Class: ClassConflict, Op: op, Err: err}
}

// NotFound wraps err as a missing backend object.
func NotFound(op string, err error) error {
	return &Error{Class: ClassNotFound, Op: op, Err: err}
}

// QuotaExceeded wraps err as a quota refusal.
func QuotaExceeded(op string, err error) error {
	return &Error{Class: ClassQuota, Op: op, Err: err}
}

func is(err error, class Class) bool {
	var de *Error
	return errors.As(err, &de) && de.Class == class
}

// IsUnavailable reports whether err is a retryable backend failure.
func IsUnavailable(err error) bool { return is(err, ClassUnavailable) }

// IsConflict reports whether err is a name conflict.
func IsConflict(err error) bool { return is(err, ClassConflict) }

// IsNotFound reports whether err references a missing backend object.
func IsNotFound(err error) bool { return is(err, ClassNotFound) }

// IsQuotaExceeded reports whether err is a quota refusal.
func IsQuotaExceeded(err error) bool { return is(err, ClassQuota) }

// Retryable reports whether the operation may be retried as-is.
func Retryable(err error) bool { return IsUnavailable(err) }

// FromContext classifies context cancellation and deadline expiry as
// backend unavailability: after a timeout the true backend state is
// unknown, so the caller must re-inspect rather than assume failure.
func FromContext(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(op, err)
	}
	return err
}
