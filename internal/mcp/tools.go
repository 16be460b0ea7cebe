package mcp

import "github.com/mark3labs/mcp-go/mcp"

var chatTool = mcp.NewTool("helpdesk_chat",
	mcp.WithDescription("Send a message to the IT helpdesk assistant. Returns the reply, the session id to continue the conversation, and the incident it concerns."),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("What the user said"),
	),
	mcp.WithString("session_id",
		mcp.Description("Session to continue; omit to start a new one"),
	),
)

var getIncidentTool = mcp.NewTool("get_incident",
	mcp.WithDescription("Get an incident by id (e.g. INC20251022150744): status, collected information, missing fields and solution."),
	mcp.WithString("incident_id",
		mcp.Required(),
		mcp.Description("Incident id"),
	),
)

var searchKBTool = mcp.NewTool("search_kb",
	mcp.WithDescription("Search the knowledge base of known IT issues and their solutions."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Description of the issue"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)
