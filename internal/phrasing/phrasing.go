// Package phrasing turns a situation chosen by the conversation logic into
// the text shown to the user. Templates are the source of truth; a model
// may reword them but never change ids, lists or questions.
package phrasing

import (
	"context"
	"strings"
)

// Situation names a reply the assistant needs to give.
type Situation string

const (
	Greeting               Situation = "greeting"
	FreshSession           Situation = "fresh_session"
	Goodbye                Situation = "goodbye"
	GreetingContext        Situation = "greeting_context"
	GreetingIdle           Situation = "greeting_idle"
	AskTrackID             Situation = "ask_track_id"
	AskIncidentType        Situation = "ask_incident_type"
	AskPreviousID          Situation = "ask_previous_id"
	AskIncompleteID        Situation = "ask_incomplete_id"
	KeepOrIgnore           Situation = "keep_or_ignore"
	KeepOrIgnoreRetry      Situation = "keep_or_ignore_retry"
	IncidentSelection      Situation = "incident_selection"
	IncidentSelectionRetry Situation = "incident_selection_retry"
	IncidentCompleted      Situation = "incident_completed"
	IncidentClosed         Situation = "incident_closed"
	NotTechnical           Situation = "not_technical"
	GeneralQuery           Situation = "general_query"
	UnrelatedQuery         Situation = "unrelated_query"
	Error                  Situation = "error"
)

// Param keys.
const (
	IncidentID   = "incident_id"
	UserDemand   = "user_demand"
	NewIssue     = "new_issue"
	Question     = "question"
	IncidentList = "incident_list"
	ExampleID    = "example_id"
	Query        = "query"
)

// Params fills the placeholders of a situation.
type Params map[string]string

// Phraser produces reply text for a situation.
type Phraser interface {
	Phrase(ctx context.Context, s Situation, p Params) (string, error)
}

const greetingQuestion = "How may I help you? Do you want to track an already created incident or create a new one?"

var templates = map[Situation]string{
	Greeting:     "Hello! I'm your IT helpdesk assistant. " + greetingQuestion,
	FreshSession: "Your session has been cleared. Hello again! I'm your IT helpdesk assistant. " + greetingQuestion,
	Goodbye: "Thank you for contacting the IT helpdesk! Your incidents are still being tracked, " +
		"and you can come back anytime for updates.",
	GreetingContext: "Welcome back! Continuing with incident {incident_id}.\n\nLet's continue: {question}",
	GreetingIdle:    "Welcome back! Your incident {incident_id} is with our IT team. How else can I help you?",
	AskTrackID: "Sure, I can help you track your incident. " +
		"Please provide your Incident ID (e.g., INC20251022150744).",
	AskIncidentType: "Sure, I can help you create a new incident. Could you please describe the technical issue " +
		"you're facing? For example, is it related to email, VPN, password, software installation, or something else?",
	AskPreviousID: "I'd be happy to help you with a previous incident. Please provide the Incident ID " +
		"(e.g., INC20251022150744) for which you'd like to view the solution or continue the conversation.",
	AskIncompleteID: "I'd be happy to help you continue an incomplete incident. Please provide the Incident ID " +
		"(e.g., INC20251022150744) to continue from where you left off.",
	KeepOrIgnore: "I understand you're now facing a new issue: {new_issue}\n\n" +
		"You still have an active incident ({incident_id}) regarding: {user_demand}\n\n" +
		"Would you like to keep the previous incident open and create a new one, or ignore the previous incident " +
		"and focus on this new issue?\n" +
		"- KEEP: both incidents stay open and tracked\n" +
		"- IGNORE: the previous incident is closed and we focus on the new issue\n\n" +
		"Please reply with KEEP or IGNORE.",
	KeepOrIgnoreRetry: "Sorry, I didn't catch that. Please reply with KEEP (keep the previous incident open) " +
		"or IGNORE (close it and focus on the new issue).",
	IncidentSelection: "Both incidents are now active and being tracked.\n\nYour Active Incidents:\n{incident_list}\n\n" +
		"Please provide the Incident ID you want to discuss (e.g., {example_id}).",
	IncidentSelectionRetry: "I couldn't find a valid Incident ID in your reply.\n\nYour Active Incidents:\n{incident_list}\n\n" +
		"Please provide one of the Incident IDs above (e.g., {example_id}).",
	IncidentCompleted: "Thank you for providing all the necessary information! Your incident {incident_id} has been " +
		"created successfully. Our IT team will review it and get back to you soon.",
	IncidentClosed: "Incident {incident_id} regarding \"{user_demand}\" has been closed. " +
		"Is there anything else I can help you with?",
	NotTechnical: "I'm the IT helpdesk assistant, so I can only help with technical issues. " +
		"Do you have an IT problem I can help with, such as email, VPN, password or software issues?",
	GeneralQuery: "I'm here to help with IT issues. You can describe a technical problem, " +
		"track an existing incident, or continue an incomplete one.",
	UnrelatedQuery: "I understand you're asking about something else. Let's first complete your current incident.\n\n{question}",
	Error:          "I apologize, but I encountered an error processing your request. Please try again.",
}

// Render fills the template for s. Unknown situations render the error
// text.
func Render(s Situation, p Params) string {
	tmpl, ok := templates[s]
	if !ok {
		tmpl = templates[Error]
	}
	if len(p) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(p))
	for k, v := range p {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Templates is the deterministic Phraser.
type Templates struct{}

func (Templates) Phrase(_ context.Context, s Situation, p Params) (string, error) {
	return Render(s, p), nil
}
