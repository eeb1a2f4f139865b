package cleanup

import (
	"net/http"

	"github.com/carebridge/telemed-platform/internal/http/respond"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Handler exposes the manual sweep trigger and the audit trail.
type Handler struct {
	service *Service
	store   *Store
	logger  *logging.Logger
}

// NewHandler creates a new cleanup handler
func NewHandler(service *Service, store *Store, logger *logging.Logger) *Handler {
	return &Handler{service: service, store: store, logger: logger}
}

// Trigger handles POST /admin/cleanup. The human-initiated path tags the
// audit entries as manual.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Run(r.Context(), TriggerManual)
	if err != nil {
		h.logger.Error("manual cleanup sweep failed", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "internal", "cleanup sweep failed")
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}

// LogsResponse wraps the audit-log listing.
type LogsResponse struct {
	Entries []LogEntry `json:"entries"`
	Count   int        `json:"count"`
}

// Logs handles GET /admin/cleanup/logs.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListRecent(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list cleanup logs", "error", err)
		respond.Fail(w, http.StatusInternalServerError, "internal", "failed to list cleanup logs")
		return
	}
	respond.JSON(w, http.StatusOK, LogsResponse{Entries: entries, Count: len(entries)})
}
