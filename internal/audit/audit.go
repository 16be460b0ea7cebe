// Package audit records what staff did to incidents and the knowledge
// base.
package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionStatusChanged  Action = "status_changed"
	ActionMessageUpdated Action = "admin_message_updated"
	ActionKBApproved     Action = "kb_approved"
	ActionKBEntryAdded   Action = "kb_entry_added"
	ActionIncidentDelete Action = "incident_deleted"
)

// TargetType is the kind of record an action applied to.
type TargetType string

const (
	TargetIncident TargetType = "incident"
	TargetKBEntry  TargetType = "kb_entry"
)

// Entry is a single audit trail record.
type Entry struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	Actor         string     `json:"actor"`
	Action        Action     `json:"action"`
	TargetType    TargetType `json:"target_type"`
	TargetID      string     `json:"target_id"`
	Summary       string     `json:"summary"`
	PreviousValue string     `json:"previous_value,omitempty"`
	NewValue      string     `json:"new_value,omitempty"`
}

var validActions = map[Action]bool{
	ActionStatusChanged:  true,
	ActionMessageUpdated: true,
	ActionKBApproved:     true,
	ActionKBEntryAdded:   true,
	ActionIncidentDelete: true,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool { return validActions[a] }

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool { return t == TargetIncident || t == TargetKBEntry }
