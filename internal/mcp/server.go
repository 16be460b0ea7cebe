// Package mcp exposes the helpdesk to agents as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/orchestrator"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Conversation runs chat turns.
type Conversation interface {
	ProcessTurn(ctx context.Context, input, sessionID string) orchestrator.TurnResult
}

// IncidentReader looks incidents up by id; nil means not found.
type IncidentReader interface {
	Get(ctx context.Context, id string) (*incident.Incident, error)
}

// KBSearcher ranks KB entries against a query.
type KBSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]kb.Candidate, error)
}

// Server wraps an MCP server that exposes the helpdesk tools.
type Server struct {
	conv      Conversation
	incidents IncidentReader
	kb        KBSearcher
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(conv Conversation, incidents IncidentReader, kbs KBSearcher) *Server {
	s := &Server{
		conv:      conv,
		incidents: incidents,
		kb:        kbs,
	}

	s.mcp = server.NewMCPServer(
		"helpdesk",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(chatTool, s.handleChat)
	s.mcp.AddTool(getIncidentTool, s.handleGetIncident)
	s.mcp.AddTool(searchKBTool, s.handleSearchKB)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
