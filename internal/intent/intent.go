// Package intent decides what a user utterance is asking the assistant to
// do, and whether an unmatched problem description is a technical issue.
package intent

import (
	"context"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/session"
)

// Intent is the closed set of things a turn can ask for.
type Intent string

const (
	Greeting              Intent = "GREETING"
	GreetingContext       Intent = "GREETING_CONTEXT"
	UnrelatedQuery        Intent = "UNRELATED_QUERY"
	ClearSession          Intent = "CLEAR_SESSION"
	TrackIncident         Intent = "TRACK_INCIDENT"
	AskIncidentType       Intent = "ASK_INCIDENT_TYPE"
	AskIncompleteIncident Intent = "ASK_INCOMPLETE_INCIDENT"
	ProvideIncidentID     Intent = "PROVIDE_INCIDENT_ID"
	CloseIncident         Intent = "CLOSE_INCIDENT"
	AskPreviousSolution   Intent = "ASK_PREVIOUS_SOLUTION"
	NewIncident           Intent = "NEW_INCIDENT"
	ContinueIncident      Intent = "CONTINUE_INCIDENT"
	GeneralQuery          Intent = "GENERAL_QUERY"
)

// All lists every intent in dispatch order.
var All = []Intent{
	Greeting, GreetingContext, UnrelatedQuery, ClearSession, TrackIncident,
	AskIncidentType, AskIncompleteIncident, ProvideIncidentID, CloseIncident,
	AskPreviousSolution, NewIncident, ContinueIncident, GeneralQuery,
}

// Parse maps a label such as "new_incident" or "NEW_INCIDENT" to an
// Intent.
func Parse(s string) (Intent, bool) {
	label := Intent(strings.ToUpper(strings.TrimSpace(s)))
	for _, in := range All {
		if in == label {
			return in, true
		}
	}
	return "", false
}

// Request is what a classifier sees for one turn.
type Request struct {
	Utterance         string
	Context           []session.Turn
	HasActiveIncident bool
	SessionID         string
}

// Result is a classification. IncidentID is set when the utterance
// carries an incident id.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	IncidentID string  `json:"extracted_incident_id,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Classifier labels an utterance with an intent.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// Analysis says whether an utterance is an IT problem worth an incident
// and, if so, what to ask the user.
type Analysis struct {
	IsTechnical  bool     `json:"is_technical_issue"`
	Category     string   `json:"category,omitempty"`
	RequiredInfo []string `json:"required_info"`
	Questions    []string `json:"clarifying_questions"`
	Reasoning    string   `json:"reasoning,omitempty"`
}

// Analyzer inspects a problem description that matched no KB entry.
type Analyzer interface {
	Analyze(ctx context.Context, query string, history []session.Turn) (Analysis, error)
}
