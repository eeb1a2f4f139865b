package appointments

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telemed-platform/internal/http/respond"
	"github.com/carebridge/telemed-platform/internal/identity"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// BookRequest is the body for POST /appointments.
type BookRequest struct {
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Type      string `json:"type"`
}

// Book handles POST /appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid doctorId")
		return
	}

	appt, err := h.service.Book(r.Context(), BookInput{
		PatientID: p.ID,
		DoctorID:  doctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Type:      Type(req.Type),
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, appt)
}

// Withdraw handles DELETE /appointments/{appointmentID}.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), p.ID, appointmentID); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// Confirm handles PUT /appointments/{appointmentID}/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Confirm(r.Context(), p.ID, appointmentID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// CancelRequest is the body for PUT /appointments/{appointmentID}/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles PUT /appointments/{appointmentID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	appt, err := h.service.Cancel(r.Context(), p.ID, appointmentID, req.Reason)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// ConsultNotesRequest is the body for POST /appointments/{appointmentID}/consult.
type ConsultNotesRequest struct {
	Notes        string `json:"notes"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	FollowUp     string `json:"followUpInstructions"`
}

// SubmitConsultNotes handles POST /appointments/{appointmentID}/consult.
func (h *Handler) SubmitConsultNotes(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req ConsultNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	appt, err := h.service.SubmitConsultNotes(r.Context(), p.ID, appointmentID, PostConsult{
		Notes:        req.Notes,
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		FollowUp:     req.FollowUp,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// RatingRequest is the body for POST /appointments/{appointmentID}/rating.
type RatingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// SubmitRating handles POST /appointments/{appointmentID}/rating.
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if err := h.service.SubmitRating(r.Context(), p.ID, appointmentID, req.Rating, req.Feedback); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"rating": req.Rating, "feedback": req.Feedback})
}

// ListResponse wraps appointment listings.
type ListResponse struct {
	Appointments []Appointment `json:"appointments"`
	Count        int           `json:"count"`
}

// Schedule handles GET /appointments/schedule?date=YYYY-MM-DD (doctor view).
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return
	}
	appts, err := h.service.DoctorSchedule(r.Context(), p.ID, r.URL.Query().Get("date"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

// Mine handles GET /appointments (patient view).
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return
	}
	appts, err := h.service.PatientAppointments(r.Context(), p.ID, queryLimit(r, 20))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

// Waiting handles GET /appointments/waiting (doctor view of confirmed patients).
func (h *Handler) Waiting(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return
	}
	appts, err := h.service.WaitingPatients(r.Context(), p.ID, queryLimit(r, 50))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

func (h *Handler) principalAndID(w http.ResponseWriter, r *http.Request) (identity.Principal, uuid.UUID, bool) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "unauthorized", "missing principal")
		return identity.Principal{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid appointment id")
		return identity.Principal{}, uuid.Nil, false
	}
	return p, id, true
}

func queryLimit(r *http.Request, fallback int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return fallback
}
