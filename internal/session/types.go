// Package session keeps per-conversation state: which incidents are
// active, a short rolling transcript, and which follow-up (if any) the
// assistant is waiting on.
package session

import "time"

// MaxContext is the number of turns kept in a session's rolling context.
const MaxContext = 10

// Slot names the follow-up the assistant is waiting for. While a slot is
// set, the next utterance is interpreted against it before anything else.
type Slot string

const (
	SlotNone                Slot = ""
	SlotKeepOrIgnore        Slot = "keep_or_ignore"
	SlotPreviousSolutionID  Slot = "previous_solution_id"
	SlotIncidentIDSelection Slot = "incident_id_selection"
	SlotIssueDescription    Slot = "issue_description"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation context.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the persisted state of one conversation.
type Session struct {
	ID              string    `json:"session_id"`
	ActiveIncidents []string  `json:"active_incidents"`
	Context         []Turn    `json:"conversation_context"`
	Awaiting        Slot      `json:"awaiting_response,omitempty"`
	PendingQuery    string    `json:"pending_query,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppendTurn adds a turn and drops the oldest ones past MaxContext.
func (s *Session) AppendTurn(role Role, content string) {
	s.Context = append(s.Context, Turn{Role: role, Content: content})
	if n := len(s.Context); n > MaxContext {
		s.Context = append([]Turn(nil), s.Context[n-MaxContext:]...)
	}
}

// CurrentIncident returns the most recently added active incident id, or
// "" when there is none.
func (s *Session) CurrentIncident() string {
	if len(s.ActiveIncidents) == 0 {
		return ""
	}
	return s.ActiveIncidents[len(s.ActiveIncidents)-1]
}

// HasIncident reports whether id is in the active list.
func (s *Session) HasIncident(id string) bool {
	for _, a := range s.ActiveIncidents {
		if a == id {
			return true
		}
	}
	return false
}

// AddIncident makes id the current incident. An id already in the list
// is moved to the end.
func (s *Session) AddIncident(id string) {
	s.RemoveIncident(id)
	s.ActiveIncidents = append(s.ActiveIncidents, id)
}

// RemoveIncident drops id from the active list.
func (s *Session) RemoveIncident(id string) {
	out := make([]string, 0, len(s.ActiveIncidents))
	for _, a := range s.ActiveIncidents {
		if a != id {
			out = append(out, a)
		}
	}
	s.ActiveIncidents = out
}

// ClearFollowUp resets the awaited slot and any staged query.
func (s *Session) ClearFollowUp() {
	s.Awaiting = SlotNone
	s.PendingQuery = ""
}

// Reset empties the session but keeps its id and creation time.
func (s *Session) Reset() {
	s.ActiveIncidents = []string{}
	s.Context = []Turn{}
	s.ClearFollowUp()
}
