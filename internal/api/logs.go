package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/finchdesk/finch/internal/chatlog"
)

// logsHandler serves the operator dashboard endpoints.
type logsHandler struct {
	store  *chatlog.Store
	logger *slog.Logger
}

// list handles GET /api/logs. Entries are newest first.
func (h *logsHandler) list(w http.ResponseWriter, _ *http.Request) {
	entries, total := h.store.List()

	WriteJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"total": total,
	})
}

// feedbackRequest is the PUT /api/logs/{id}/feedback body.
type feedbackRequest struct {
	Feedback chatlog.Feedback `json:"feedback"`
}

// feedback handles PUT /api/logs/{id}/feedback. Repeated calls overwrite:
// the operator's latest rating wins.
func (h *logsHandler) feedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Log not found", h.logger)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a feedback field", h.logger)
		return
	}

	switch err := h.store.SetFeedback(id, req.Feedback); {
	case err == nil:
	case errors.Is(err, chatlog.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Log not found", h.logger)
		return
	case errors.Is(err, chatlog.ErrInvalidFeedback):
		WriteError(w, http.StatusBadRequest, "invalid_feedback", `feedback must be "up" or "down"`, h.logger)
		return
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to record feedback", h.logger)
		return
	}

	h.logger.Info("feedback recorded", "log_id", id, "feedback", req.Feedback)
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"log_id":   id,
		"feedback": req.Feedback,
	})
}
