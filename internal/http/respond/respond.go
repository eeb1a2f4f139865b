package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/telemed-platform/internal/appointments/apperrors"
	"github.com/carebridge/telemed-platform/internal/clinictime"
)

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Fail writes an explicit error kind and message.
func Fail(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, errorBody{Error: kind, Message: message})
}

// Error maps a domain error onto a stable machine-readable kind and an HTTP
// status. Every failure surface is terminal and user-facing; internal detail
// never leaks past the 500 fallback.
func Error(w http.ResponseWriter, err error) {
	var (
		validation *apperrors.ValidationError
		badDate    clinictime.ErrInvalidDate
		badClock   clinictime.ErrInvalidClock
	)
	switch {
	case errors.As(err, &validation):
		Fail(w, http.StatusBadRequest, "validation_error", validation.Error())
	case errors.As(err, &badDate), errors.As(err, &badClock):
		Fail(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, apperrors.ErrDoctorNotBookable):
		Fail(w, http.StatusBadRequest, "not_eligible", err.Error())
	case errors.Is(err, apperrors.ErrSlotConflict):
		Fail(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		Fail(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		Fail(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, apperrors.ErrInvalidState):
		Fail(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, apperrors.ErrOutsideWindow):
		Fail(w, http.StatusBadRequest, "outside_window", err.Error())
	case errors.Is(err, apperrors.ErrTooEarly):
		Fail(w, http.StatusBadRequest, "too_early", err.Error())
	case errors.Is(err, apperrors.ErrWindowExpired):
		Fail(w, http.StatusBadRequest, "window_expired", err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
