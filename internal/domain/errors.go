// Package domain provides the catalog's core entities and the error
// taxonomy shared by every component that writes to or reads from it.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the catalog-wide error taxonomy (spec §7). Every
// component surfaces one of these, wrapped with context via fmt.Errorf's
// %w verb, so callers can still errors.Is against the sentinel.
var (
	// ErrInvalid indicates caller-supplied data violates a contract:
	// schema, cycle, depth range, unknown type/relationship.
	ErrInvalid = errors.New("invalid")

	// ErrNotFound indicates a named entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation on create.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates a downstream store or broker is temporarily
	// down.
	ErrUnavailable = errors.New("unavailable")

	// ErrPublish indicates a broker-level publish I/O failure.
	ErrPublish = errors.New("publish error")

	// ErrConsume indicates a broker-level consume I/O failure.
	ErrConsume = errors.New("consume error")

	// ErrInternal indicates an invariant was broken.
	ErrInternal = errors.New("internal error")
)

// Invalidf wraps ErrInvalid with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Unavailablef wraps ErrUnavailable with a formatted message.
func Unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnavailable}, args...)...)
}

// Publishf wraps ErrPublish with a formatted message.
func Publishf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPublish}, args...)...)
}

// Consumef wraps ErrConsume with a formatted message.
func Consumef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConsume}, args...)...)
}

// Internalf wraps ErrInternal with a formatted message.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInternal}, args...)...)
}

// IsInvalid reports whether err wraps ErrInvalid.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnavailable reports whether err wraps ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
