package sessions

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telemed-platform/internal/http/respond"
	"github.com/carebridge/telemed-platform/internal/identity"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Handler handles HTTP requests for the video session protocol
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new sessions handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Start handles POST /appointments/{appointmentID}/session/start (doctor).
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := principalAndID(w, r)
	if !ok {
		return
	}
	creds, err := h.service.Start(r.Context(), p.ID, appointmentID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, creds)
}

// Join handles GET /appointments/{appointmentID}/session/join (patient).
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := principalAndID(w, r)
	if !ok {
		return
	}
	creds, err := h.service.Join(r.Context(), p.ID, appointmentID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, creds)
}

// End handles POST /appointments/{appointmentID}/session/end (doctor).
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	p, appointmentID, ok := principalAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.End(r.Context(), p.ID, appointmentID); err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func principalAndID(w http.ResponseWriter, r *http.Request) (identity.Principal, uuid.UUID, bool) {
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
