package appointments

import (
	"github.com/carebridge/telemed-platform/internal/appointments/apperrors"
)

// The domain errors are defined in the apperrors leaf package so the shared
// HTTP error mapper can reference them without importing this package. They
// are aliased here to keep the appointments API unchanged.
var (
	ErrNotFound          = apperrors.ErrNotFound
	ErrForbidden         = apperrors.ErrForbidden
	ErrInvalidState      = apperrors.ErrInvalidState
	ErrSlotConflict      = apperrors.ErrSlotConflict
	ErrDoctorNotBookable = apperrors.ErrDoctorNotBookable
	ErrOutsideWindow     = apperrors.ErrOutsideWindow
	ErrTooEarly          = apperrors.ErrTooEarly
	ErrWindowExpired     = apperrors.ErrWindowExpired
)

// ValidationError reports malformed input (date/time format, missing or
// out-of-range fields).
type ValidationError = apperrors.ValidationError

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
