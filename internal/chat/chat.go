// Package chat exposes the conversation over HTTP and a websocket.
package chat

import (
	"context"

	"github.com/ziadkadry99/helpdesk/internal/orchestrator"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

// Conversation is the part of the orchestrator the chat surfaces use.
type Conversation interface {
	ProcessTurn(ctx context.Context, input, sessionID string) orchestrator.TurnResult
	CreateIncident(ctx context.Context, description, sessionID string) orchestrator.TurnResult
	GetSessionHistory(ctx context.Context, id string) ([]session.Turn, error)
	ClearSession(ctx context.Context, id string) (bool, error)
}

// queryRequest is the body of POST /api/chat/query and of websocket
// "message" frames.
type queryRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"session_id" validate:"max=128"`
}

type incidentRequest struct {
	Description string `json:"description" validate:"required,max=4000"`
	SessionID   string `json:"session_id" validate:"max=128"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	History   []session.Turn `json:"history"`
}

type clearResponse struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
}
