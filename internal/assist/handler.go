package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/telemed-platform/internal/http/respond"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Assistant produces a single reply for a user message.
type Assistant interface {
	Reply(ctx context.Context, message string, mode Mode) (string, error)
}

// Handler handles HTTP requests for the AI assist proxy
type Handler struct {
	assistant Assistant
	logger    *logging.Logger
}

// NewHandler creates a new assist handler
func NewHandler(assistant Assistant, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{assistant: assistant, logger: logger}
}

// ChatRequest is the body for POST /assist/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Response   string `json:"response"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

// Chat handles POST /assist/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	mode := Mode(req.Context)
	if mode == "" {
		mode = ModePlatform
	}
	if mode != ModeMedical && mode != ModePlatform {
		respond.Fail(w, http.StatusBadRequest, "validation_error", "context must be medical or platform")
		return
	}

	reply, err := h.assistant.Reply(r.Context(), req.Message, mode)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.Fail(w, http.StatusBadRequest, "validation_error", "message cannot be empty")
		case errors.Is(err, ErrUnavailable):
			respond.Fail(w, http.StatusBadGateway, "ai_unavailable", "AI service unavailable")
		default:
			h.logger.Error("assist chat failed", "error", err)
			respond.Fail(w, http.StatusBadGateway, "ai_unavailable", "AI service unavailable")
		}
		return
	}

	resp := ChatResponse{Response: reply}
	if mode == ModeMedical {
		resp.Disclaimer = "Consult a doctor for medical advice."
	}
	respond.JSON(w, http.StatusOK, resp)
}
