package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no record exists for the given key.
	ErrNotFound = errors.New("tenant record not found")

	// ErrDuplicateOwner means the owner already has a tenant record.
	ErrDuplicateOwner = errors.New("owner already has a tenant record")

	// ErrDuplicateSlug means the slug is already taken, possibly by a
	// destroyed tenant. Slugs are never recycled.
	ErrDuplicateSlug = errors.New("slug already in use")

	// ErrInvalidTransition is the base error for transitions the status
	// graph forbids. Returned wrapped in *InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError reports a rejected status change. It wraps
// ErrInvalidTransition so callers can match with errors.Is.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("tenant %s: invalid status transition %s -> %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTransition reports whether err is a rejected status change.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
