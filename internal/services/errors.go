// Package services implements the business logic of the Sesh backend:
// the transactional achievement/XP engine, the sliding-window rate limiter,
// and notification fan-out. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into HTTP statuses is performed at the handler layer.
package services

import "errors"

var (
	// ErrUserNotFound indicates that the target user record does not exist.
	// Event-driven entry points treat this as a silent no-op; the callable
	// recheck operation surfaces it to the caller.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidHours is returned when a focus session reports a duration
	// that is zero, negative, or not a finite number.
	ErrInvalidHours = errors.New("hours must be a positive finite number")

	// ErrUnknownField is returned when a counter update names a field the
	// user record does not carry. It signals a programming error in the
	// caller, not bad external input.
	ErrUnknownField = errors.New("unknown counter field")
)
