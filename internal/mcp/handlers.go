package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/kb"
)

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil || strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}
	res := s.conv.ProcessTurn(ctx, message, request.GetString("session_id", ""))

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding reply: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleGetIncident(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("incident_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: incident_id"), nil
	}
	id := heuristics.ExtractIncidentID(raw)
	if id == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not an incident id", raw)), nil
	}

	inc, err := s.incidents.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading incident: %v", err)), nil
	}
	if inc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("No incident found with id %s.", id)), nil
	}

	b, err := json.MarshalIndent(inc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding incident: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleSearchKB(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	results, err := s.kb.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching knowledge base entries. Run `helpdesk kb import` to load entries."), nil
	}
	return mcp.NewToolResultText(formatCandidates(results)), nil
}

func formatCandidates(results []kb.Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d entries:\n", len(results))
	for i, c := range results {
		fmt.Fprintf(&sb, "\n## %d. %s - %s (similarity %.2f)\n", i+1, c.ID, c.UseCase, c.Similarity)
		if len(c.RequiredInfo) > 0 {
			fmt.Fprintf(&sb, "Required info: %s\n", strings.Join(c.RequiredInfo, ", "))
		}
		if c.SolutionSteps != "" {
			fmt.Fprintf(&sb, "Solution:\n%s\n", c.SolutionSteps)
		}
	}
	return sb.String()
}
