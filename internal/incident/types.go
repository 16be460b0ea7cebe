// Package incident models a support incident and the checklist of
// information collected from the user before staff pick it up.
package incident

import (
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/session"
)

var (
	// ErrNotFound is returned by store operations on an unknown id.
	ErrNotFound = errors.New("incident not found")
	// ErrInvalidTransition is returned when a state change isn't allowed
	// from the incident's current status.
	ErrInvalidTransition = errors.New("invalid incident transition")
)

// Status is the lifecycle state of an incident.
type Status string

const (
	StatusPendingInfo Status = "pending_info"
	StatusOpen        Status = "open"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPendingInfo, StatusOpen, StatusResolved, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingInfo, StatusOpen, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no further user-driven transitions apply.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// ParseStatus converts a string into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Field is one collected piece of information. Collected fields are kept
// as an ordered list so the order they were answered in survives storage.
type Field struct {
	Name  string `json:"field"`
	Value string `json:"value"`
}

// Message is one entry of an incident's own transcript. Question marks
// assistant messages that asked for a field, as opposed to follow-ups
// and confirmations.
type Message struct {
	Role     session.Role `json:"role"`
	Content  string       `json:"content"`
	Question bool         `json:"question,omitempty"`
}

// Incident is a support ticket and its collection state.
type Incident struct {
	ID              string     `json:"incident_id"`
	SessionID       string     `json:"session_id"`
	UserDemand      string     `json:"user_demand"`
	KBID            string     `json:"kb_id,omitempty"`
	Status          Status     `json:"status"`
	RequiredInfo    []string   `json:"required_info"`
	CollectedInfo   []Field    `json:"collected_info"`
	MissingInfo     []string   `json:"missing_info"`
	Questions       []string   `json:"questions"`
	History         []Message  `json:"conversation_history"`
	SolutionSteps   string     `json:"solution_steps"`
	IsNewKBEntry    bool       `json:"is_new_kb_entry"`
	NeedsKBApproval bool       `json:"needs_kb_approval"`
	AdminMessage    string     `json:"admin_message"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ResolvedOn      *time.Time `json:"resolved_on,omitempty"`
	ClosedOn        *time.Time `json:"closed_on,omitempty"`
}

// Draft carries what's known about an incident when it is created.
type Draft struct {
	SessionID       string
	UserDemand      string
	KBID            string
	RequiredInfo    []string
	Questions       []string
	SolutionSteps   string
	IsNewKBEntry    bool
	NeedsKBApproval bool
}

// ListFilter controls which incidents List returns.
type ListFilter struct {
	Status        Status
	NeedsApproval *bool
	SessionID     string
	Limit         int
}

// Stats summarizes the incident table for the admin dashboard.
type Stats struct {
	Total           int            `json:"total_incidents"`
	ByStatus        map[Status]int `json:"by_status"`
	NeedsKBApproval int            `json:"needs_kb_approval"`
}
