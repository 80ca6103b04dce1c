package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"browser-agent/internal/application/port/input"
	"browser-agent/internal/application/port/output"
	"browser-agent/internal/domain/entity"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type feedbackRequest struct {
	SessionID string         `json:"sessionId"`
	ActionID  string         `json:"actionId"`
	Success   bool           `json:"success"`
	Result    map[string]any `json:"result"`
	Error     string         `json:"error"`
}

type startRequest struct {
	Actions []entity.PlannedAction `json:"actions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		h.respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	res, err := h.turns.HandleInstruction(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("Instruction failed", "session", req.SessionID, "error", err)
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respond(w, http.StatusOK, res)
}

func (h *Handlers) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ActionID == "" {
		h.respondWithError(w, http.StatusBadRequest, "actionId is required")
		return
	}

	res, err := h.turns.HandleFeedback(r.Context(), input.FeedbackInput{
		SessionID: req.SessionID,
		ActionID:  req.ActionID,
		Success:   req.Success,
		Result:    req.Result,
		Error:     req.Error,
	})
	if err != nil {
		h.logger.Error("Feedback failed", "session", req.SessionID, "action", req.ActionID, "error", err)
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respond(w, http.StatusOK, res)
}

func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Actions) == 0 {
		h.respondWithError(w, http.StatusBadRequest, "actions are required")
		return
	}

	if err := h.execution.StartExecution(r.Context(), entity.QueueAll(req.Actions)); err != nil {
		h.respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	h.respond(w, http.StatusAccepted, h.execution.Status())
}

func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.execution.StopExecution()
	h.respond(w, http.StatusOK, h.execution.Status())
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.execution.Status())
}

func (h *Handlers) HandleConversations(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := h.turns.Conversations(r.Context(), sessionID)
	switch {
	case errors.Is(err, output.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, fmt.Sprintf("session %s not found", sessionID))
	case err != nil:
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		h.respond(w, http.StatusOK, entries)
	}
}

func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		h.respondWithError(w, http.StatusNotImplemented, "no page in this process")
		return
	}

	snap, err := h.inspector.Snapshot(r.Context(), output.SnapshotOptions{
		Screenshot: r.URL.Query().Get("screenshot") == "true",
	})
	switch {
	case errors.Is(err, entity.ErrNoActiveTarget):
		h.respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		h.respond(w, http.StatusOK, snap)
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, errorResponse{Error: message})
}

func (h *Handlers) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
