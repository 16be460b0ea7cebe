package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/helpdesk/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is the incoming websocket message format.
type frame struct {
	Type      string `json:"type"` // "message", "history" or "clear"
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// reply is the outgoing websocket message format.
type reply struct {
	Type      string                   `json:"type"` // "response", "history", "cleared" or "error"
	SessionID string                   `json:"session_id,omitempty"`
	Result    *orchestrator.TurnResult `json:"result,omitempty"`
	History   any                      `json:"history,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}
	defer conn.Close()

	// A connection keeps its session so clients may omit the id after the
	// first frame.
	sessionID := r.URL.Query().Get("session_id")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			h.send(conn, reply{Type: "error", SessionID: sessionID, Error: "invalid message format"})
			continue
		}
		if f.SessionID != "" {
			sessionID = f.SessionID
		}

		switch f.Type {
		case "message", "":
			if err := h.validate.Struct(queryRequest{Message: f.Message, SessionID: sessionID}); err != nil {
				h.send(conn, reply{Type: "error", SessionID: sessionID, Error: "message is required"})
				continue
			}
			res := h.conv.ProcessTurn(r.Context(), f.Message, sessionID)
			sessionID = res.SessionID
			h.send(conn, reply{Type: "response", SessionID: sessionID, Result: &res})
		case "history":
			history, err := h.conv.GetSessionHistory(r.Context(), sessionID)
			if err != nil {
				h.log.Error().Err(err).Str("session_id", sessionID).Msg("loading history")
				h.send(conn, reply{Type: "error", SessionID: sessionID, Error: "could not load history"})
				continue
			}
			h.send(conn, reply{Type: "history", SessionID: sessionID, History: history})
		case "clear":
			if _, err := h.conv.ClearSession(r.Context(), sessionID); err != nil {
				h.log.Error().Err(err).Str("session_id", sessionID).Msg("clearing session")
				h.send(conn, reply{Type: "error", SessionID: sessionID, Error: "could not clear session"})
				continue
			}
			h.send(conn, reply{Type: "cleared", SessionID: sessionID})
		default:
			h.send(conn, reply{Type: "error", SessionID: sessionID, Error: "unknown message type: " + f.Type})
		}
	}
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade")
	}
	return conn, err
}

func (h *Handler) send(conn *websocket.Conn, v reply) {
	if err := conn.WriteJSON(v); err != nil {
		h.log.Warn().Err(err).Msg("websocket write")
	}
}
