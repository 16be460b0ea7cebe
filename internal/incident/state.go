package incident

import (
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

// Outcome is the result of offering an answer to the current field.
type Outcome int

const (
	Rejected Outcome = iota
	Collected
	Completed
)

const moreDetailsQuestion = "Can you provide more details about this issue?"

var defaultAdminMessages = map[Status]string{
	StatusPendingInfo: "Still need some information.",
	StatusOpen:        "All information collected. Our team will contact you soon.",
	StatusResolved:    "Incident has been resolved successfully.",
	StatusClosed:      "Incident has been closed.",
}

// DefaultAdminMessage returns the message shown to users when staff
// haven't written one for the given status.
func DefaultAdminMessage(s Status) string {
	return defaultAdminMessages[s]
}

// IsDefaultAdminMessage reports whether msg is empty or one of the
// per-status defaults, i.e. safe to replace on a status change.
func IsDefaultAdminMessage(msg string) bool {
	if msg == "" {
		return true
	}
	for _, m := range defaultAdminMessages {
		if m == msg {
			return true
		}
	}
	return false
}

// GenericQuestion is asked for a field with no prepared question.
func GenericQuestion(field string) string {
	return fmt.Sprintf("Can you provide information about: %s?", field)
}

// New builds an incident from a draft. Required fields are trimmed and
// de-duplicated; an incident with nothing to collect starts out open.
func New(id string, d Draft, now time.Time) *Incident {
	now = now.UTC()
	inc := &Incident{
		ID:              id,
		SessionID:       d.SessionID,
		UserDemand:      strings.TrimSpace(d.UserDemand),
		KBID:            d.KBID,
		RequiredInfo:    dedupe(d.RequiredInfo),
		CollectedInfo:   []Field{},
		Questions:       append([]string{}, d.Questions...),
		History:         []Message{},
		SolutionSteps:   d.SolutionSteps,
		IsNewKBEntry:    d.IsNewKBEntry,
		NeedsKBApproval: d.NeedsKBApproval,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	inc.MissingInfo = append([]string{}, inc.RequiredInfo...)
	inc.Status = StatusPendingInfo
	if len(inc.MissingInfo) == 0 {
		inc.Status = StatusOpen
		inc.CompletedAt = &now
	}
	inc.AdminMessage = DefaultAdminMessage(inc.Status)
	return inc
}

func dedupe(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[strings.ToLower(f)] {
			continue
		}
		seen[strings.ToLower(f)] = true
		out = append(out, f)
	}
	return out
}

// CurrentField is the field being asked for, or "" once nothing is missing.
func (i *Incident) CurrentField() string {
	if len(i.MissingInfo) == 0 {
		return ""
	}
	return i.MissingInfo[0]
}

// Collected returns the value recorded for field.
func (i *Incident) Collected(field string) (string, bool) {
	for _, f := range i.CollectedInfo {
		if f.Name == field {
			return f.Value, true
		}
	}
	return "", false
}

// QuestionFor picks the question to ask for field. KB-backed incidents use
// the question aligned with the field, as long as the KB lists exactly one
// question per field. Other incidents walk their question list in
// collection order. Anything else gets a generic question.
func (i *Incident) QuestionFor(field string) string {
	if i.KBID != "" {
		if len(i.Questions) == len(i.RequiredInfo) {
			for idx, f := range i.RequiredInfo {
				if f == field && strings.TrimSpace(i.Questions[idx]) != "" {
					return i.Questions[idx]
				}
			}
		}
		return GenericQuestion(field)
	}
	if n := len(i.CollectedInfo); n < len(i.Questions) && strings.TrimSpace(i.Questions[n]) != "" {
		return i.Questions[n]
	}
	return GenericQuestion(field)
}

// NextQuestion is the question for the current field, or "" when nothing
// is missing.
func (i *Incident) NextQuestion() string {
	field := i.CurrentField()
	if field == "" {
		return ""
	}
	return i.QuestionFor(field)
}

// LastQuestion returns the most recent question asked in the transcript,
// falling back to a question for the current field.
func (i *Incident) LastQuestion() string {
	for idx := len(i.History) - 1; idx >= 0; idx-- {
		m := i.History[idx]
		if m.Role == session.RoleAssistant && m.Question {
			return m.Content
		}
	}
	if q := i.NextQuestion(); q != "" {
		return q
	}
	return moreDetailsQuestion
}

// AppendHistory adds an entry to the incident transcript.
func (i *Incident) AppendHistory(role session.Role, content string, question bool) {
	i.History = append(i.History, Message{Role: role, Content: content, Question: question})
}

// Accept offers answer for the current field. An acceptable answer moves
// the field from missing to collected; collecting the last field opens
// the incident. A rejected answer changes nothing.
func (i *Incident) Accept(answer string, now time.Time) (Outcome, error) {
	field := i.CurrentField()
	if i.Status != StatusPendingInfo || field == "" {
		return Rejected, fmt.Errorf("accepting answer for %s in status %s: %w", i.ID, i.Status, ErrInvalidTransition)
	}
	value, ok := heuristics.AcceptAnswer(field, answer)
	if !ok {
		return Rejected, nil
	}

	now = now.UTC()
	i.CollectedInfo = append(i.CollectedInfo, Field{Name: field, Value: value})
	i.MissingInfo = append([]string{}, i.MissingInfo[1:]...)
	i.UpdatedAt = now
	if len(i.MissingInfo) > 0 {
		return Collected, nil
	}
	i.Status = StatusOpen
	i.CompletedAt = &now
	i.AdminMessage = DefaultAdminMessage(StatusOpen)
	return Completed, nil
}

// Close moves a non-terminal incident to closed.
func (i *Incident) Close(now time.Time) error {
	if i.Status.Terminal() {
		return fmt.Errorf("closing %s in status %s: %w", i.ID, i.Status, ErrInvalidTransition)
	}
	now = now.UTC()
	i.Status = StatusClosed
	i.ClosedOn = &now
	i.UpdatedAt = now
	return nil
}

// SetStatus is the staff-side status change. Any valid status may be set
// except open while fields are still missing and pending_info once none
// are. A default admin message follows the status unless staff wrote
// their own, and resolved/closed stamp their timestamps.
func (i *Incident) SetStatus(s Status, now time.Time) error {
	if !s.Valid() {
		return fmt.Errorf("setting status %q: %w", s, ErrInvalidTransition)
	}
	if s == StatusOpen && len(i.MissingInfo) > 0 {
		return fmt.Errorf("opening %s with %d fields missing: %w", i.ID, len(i.MissingInfo), ErrInvalidTransition)
	}
	if s == StatusPendingInfo && len(i.MissingInfo) == 0 {
		return fmt.Errorf("setting %s to pending_info with nothing missing: %w", i.ID, ErrInvalidTransition)
	}
	now = now.UTC()
	if IsDefaultAdminMessage(i.AdminMessage) {
		i.AdminMessage = DefaultAdminMessage(s)
	}
	switch s {
	case StatusResolved:
		i.ResolvedOn = &now
	case StatusClosed:
		i.ClosedOn = &now
	case StatusOpen:
		if i.CompletedAt == nil {
			i.CompletedAt = &now
		}
	}
	i.Status = s
	i.UpdatedAt = now
	return nil
}

// Summary is the short form used when listing incidents to a user.
func (i *Incident) Summary() string {
	return fmt.Sprintf("%s - %s", i.ID, i.UserDemand)
}
