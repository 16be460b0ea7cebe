package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ziadkadry99/helpdesk/internal/logging"
)

// Handler serves the chat API.
type Handler struct {
	conv     Conversation
	validate *validator.Validate
	log      *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(conv Conversation, logger *logging.Logger) *Handler {
	return &Handler{conv: conv, validate: validator.New(), log: logger.Sub("chat")}
}

// RegisterRoutes mounts the chat API under /api/chat and the websocket at
// /ws/chat.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/query", h.handleQuery)
		r.Post("/incident", h.handleCreateIncident)
		r.Get("/session/{id}/history", h.handleHistory)
		r.Post("/session/{id}/clear", h.handleClear)
	})
	r.Get("/ws/chat", h.handleWebSocket)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.conv.ProcessTurn(r.Context(), req.Message, req.SessionID))
}

func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.conv.CreateIncident(r.Context(), req.Description, req.SessionID))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := h.conv.GetSessionHistory(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("loading history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load history"})
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, History: history})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.conv.ClearSession(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("clearing session")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not clear session"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{SessionID: id, Cleared: true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
