package orchestrator

import (
	"context"

	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

// Status tags a TurnResult so clients can tell what the assistant is
// waiting for. Incident statuses are reported as-is.
type Status string

const (
	StatusNone                       Status = ""
	StatusAwaitingIncidentID         Status = "awaiting_incident_id"
	StatusNotFound                   Status = "not_found"
	StatusSessionCleared             Status = "session_cleared"
	StatusAwaitingPreviousIncidentID Status = "awaiting_previous_incident_id"
	StatusIncidentNotFound           Status = "incident_not_found"
	StatusSolutionDisplayed          Status = "solution_displayed"
	StatusAwaitingIncidentSelection  Status = "awaiting_incident_selection"
	StatusAwaitingIssueDescription   Status = "awaiting_issue_description"
	StatusAwaitingDecision           Status = "awaiting_decision"
	StatusIncidentClosed             Status = "incident_closed"
	StatusNotTechnical               Status = "not_technical"
	StatusError                      Status = "error"
)

func incidentStatus(s incident.Status) Status { return Status(s) }

// ActionClearSession is set on the result of a session clear.
const ActionClearSession = "clear_session"

// ActionButton is a quick reply offered to the user. Value is sent back as
// the next utterance.
type ActionButton struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var (
	greetingButtons = []ActionButton{
		{Label: "Track Incident", Value: "track a incident"},
		{Label: "Create New Incident", Value: "create a incident"},
		{Label: "View Incomplete Incident", Value: "view incomplete incident"},
	}
	keepIgnoreButtons = []ActionButton{
		{Label: "KEEP", Value: "keep"},
		{Label: "IGNORE", Value: "ignore"},
	}
)

// TurnResult is the reply to one user turn. Message is never empty.
type TurnResult struct {
	Message           string         `json:"message"`
	IncidentID        string         `json:"incident_id,omitempty"`
	SessionID         string         `json:"session_id"`
	Status            Status         `json:"status,omitempty"`
	Action            string         `json:"action,omitempty"`
	ShowActionButtons bool           `json:"show_action_buttons"`
	ActionButtons     []ActionButton `json:"action_buttons,omitempty"`
}

// IgnorePolicy decides what happens to the active incidents when the user
// answers IGNORE.
type IgnorePolicy string

const (
	IgnoreClose  IgnorePolicy = "close"
	IgnoreDelete IgnorePolicy = "delete"
)

// SessionStore is the session persistence the orchestrator needs.
type SessionStore interface {
	Create(ctx context.Context, id string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, id string, p session.Patch) error
}

// IncidentStore is the incident persistence the orchestrator needs.
type IncidentStore interface {
	Create(ctx context.Context, inc *incident.Incident) error
	Get(ctx context.Context, id string) (*incident.Incident, error)
	Update(ctx context.Context, id string, p incident.Patch) error
	Delete(ctx context.Context, id string) error
}

// KBLookup finds the known issue matching a description, or nil.
type KBLookup interface {
	BestMatch(ctx context.Context, query string) (*kb.Candidate, error)
}
