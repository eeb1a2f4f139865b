// Package apperrors holds the appointments domain errors in a leaf package
// so that both the appointments package and the shared HTTP error mapper can
// reference them without an import cycle.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a missing appointment, and deliberately
	// also for one the caller may not act on at all, so non-owners cannot
	// probe which ids exist.
	ErrNotFound = errors.New("appointment not found")

	// ErrForbidden is returned when an authenticated caller is not the
	// owning party for the operation.
	ErrForbidden = errors.New("not authorized for this appointment")

	// ErrInvalidState is returned when an operation is not legal in the
	// appointment's current lifecycle state, including lost transition races.
	ErrInvalidState = errors.New("operation not allowed in current appointment state")

	// ErrSlotConflict is returned when the doctor already holds a
	// non-cancelled appointment at the requested local day and start time.
	ErrSlotConflict = errors.New("time slot is already booked")

	// ErrDoctorNotBookable is returned when the referenced user is not an
	// active, verified doctor.
	ErrDoctorNotBookable = errors.New("doctor not available for booking")

	// ErrOutsideWindow is returned when a doctor tries to start a session
	// outside the allowed window around the scheduled instant.
	ErrOutsideWindow = errors.New("current time is outside the allowed start window")

	// ErrTooEarly is returned when a patient tries to join before the join
	// window opens. It is retryable; the appointment is not mutated.
	ErrTooEarly = errors.New("join window has not opened yet")

	// ErrWindowExpired is returned when a patient tries to join after the
	// join window closed; the appointment is reclassified as a no-show.
	ErrWindowExpired = errors.New("join window has expired")
)

// ValidationError reports malformed input (date/time format, missing or
// out-of-range fields).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
