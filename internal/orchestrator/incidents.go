package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

// detailsField is collected for an ad-hoc issue the analyzer found no
// specific fields for.
const detailsField = "Issue Details"

// createIncident looks the description up in the KB, falls back to
// analyzing it, and opens a KB-backed or new-KB incident. A description
// that isn't a technical issue gets a redirect and no incident.
func (o *Orchestrator) createIncident(ctx context.Context, t *turn, description string) (TurnResult, error) {
	if description == "" {
		return TurnResult{Message: o.phrase(ctx, phrasing.AskIncidentType, nil), Status: StatusAwaitingIssueDescription}, nil
	}

	draft, ok, err := o.draftFor(ctx, t, description)
	if err != nil {
		return TurnResult{}, err
	}
	if !ok {
		msg := o.phrase(ctx, phrasing.NotTechnical, phrasing.Params{phrasing.Query: description})
		return TurnResult{Message: msg, Status: StatusNotTechnical}, nil
	}

	inc := incident.New(o.ids.Next(), draft, o.now())
	inc.AppendHistory(session.RoleUser, description, false)
	var msg string
	if inc.Status == incident.StatusPendingInfo {
		msg = inc.NextQuestion()
		inc.AppendHistory(session.RoleAssistant, msg, true)
	} else {
		msg = o.phrase(ctx, phrasing.IncidentCompleted, phrasing.Params{phrasing.IncidentID: inc.ID})
		inc.AppendHistory(session.RoleAssistant, msg, false)
	}

	if err := o.incidents.Create(ctx, inc); err != nil {
		return TurnResult{}, fmt.Errorf("creating incident: %w", err)
	}
	t.sess.AddIncident(inc.ID)
	o.log.Info().Str("session_id", t.sess.ID).Str("incident_id", inc.ID).Str("kb_id", inc.KBID).
		Bool("needs_kb_approval", inc.NeedsKBApproval).Msg("incident created")

	return TurnResult{Message: msg, IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
}

func (o *Orchestrator) draftFor(ctx context.Context, t *turn, description string) (incident.Draft, bool, error) {
	draft := incident.Draft{SessionID: t.sess.ID, UserDemand: description}

	lctx, cancel := o.bounded(ctx)
	match, err := o.kb.BestMatch(lctx, description)
	cancel()
	if err != nil {
		return draft, false, fmt.Errorf("looking up kb: %w", err)
	}
	if match != nil {
		draft.KBID = match.ID
		draft.RequiredInfo = match.RequiredInfo
		draft.Questions = match.Questions
		draft.SolutionSteps = match.SolutionSteps
		return draft, true, nil
	}

	actx, cancel := o.bounded(ctx)
	analysis, err := o.analyzer.Analyze(actx, description, t.sess.Context)
	cancel()
	if err != nil {
		return draft, false, fmt.Errorf("analyzing issue: %w", err)
	}
	if !analysis.IsTechnical {
		return draft, false, nil
	}

	draft.RequiredInfo = analysis.RequiredInfo
	draft.Questions = analysis.Questions
	if len(draft.RequiredInfo) == 0 {
		draft.RequiredInfo = []string{detailsField}
		draft.Questions = []string{fmt.Sprintf(
			"I understand you're experiencing an issue with: %s. Can you provide more details about this problem?", description)}
	} else if len(draft.Questions) != len(draft.RequiredInfo) {
		draft.Questions = kb.GenerateQuestions(draft.RequiredInfo)
	}
	draft.IsNewKBEntry = true
	draft.NeedsKBApproval = true
	return draft, true, nil
}

// collect offers the utterance as the answer to inc's current field.
func (o *Orchestrator) collect(ctx context.Context, t *turn, inc *incident.Incident) (TurnResult, error) {
	field := inc.CurrentField()
	if inc.Status != incident.StatusPendingInfo || field == "" {
		return TurnResult{Message: statusReport(inc), IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
	}

	lastQuestion := inc.LastQuestion()
	inc.AppendHistory(session.RoleUser, t.input, false)
	outcome, err := inc.Accept(t.input, o.now())
	if err != nil {
		return TurnResult{}, err
	}

	var msg string
	switch outcome {
	case incident.Rejected:
		msg = fmt.Sprintf("I need specific information about: %s. %s", field, lastQuestion)
		inc.AppendHistory(session.RoleAssistant, msg, false)
	case incident.Collected:
		msg = inc.NextQuestion()
		inc.AppendHistory(session.RoleAssistant, msg, true)
	case incident.Completed:
		msg = o.phrase(ctx, phrasing.IncidentCompleted, phrasing.Params{phrasing.IncidentID: inc.ID})
		inc.AppendHistory(session.RoleAssistant, msg, false)
		o.log.Info().Str("session_id", t.sess.ID).Str("incident_id", inc.ID).Msg("incident information complete")
	}

	if err := o.incidents.Update(ctx, inc.ID, incident.ProgressPatch(inc)); err != nil {
		return TurnResult{}, fmt.Errorf("saving incident %s: %w", inc.ID, err)
	}
	// Answering an incident makes it the current one.
	t.sess.AddIncident(inc.ID)
	return TurnResult{Message: msg, IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
}

// incidentList renders "• ID - description" lines for the given ids,
// skipping ids that no longer resolve.
func (o *Orchestrator) incidentList(ctx context.Context, ids []string) (string, error) {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		inc, err := o.incidents.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if inc != nil {
			lines = append(lines, "• "+inc.Summary())
		}
	}
	return strings.Join(lines, "\n"), nil
}

func solutionText(inc *incident.Incident) string {
	if strings.TrimSpace(inc.SolutionSteps) == "" {
		return "No solution steps provided yet."
	}
	return inc.SolutionSteps
}

func adminMessage(inc *incident.Incident) string {
	if inc.AdminMessage != "" {
		return inc.AdminMessage
	}
	return incident.DefaultAdminMessage(inc.Status)
}

// statusReport describes an incident for tracking: status, issue,
// collected information, the solution once resolved, and the admin
// message last.
func statusReport(inc *incident.Incident) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your incident %s regarding \"%s\" is currently **%s**.", inc.ID, inc.UserDemand, inc.Status)
	if len(inc.CollectedInfo) > 0 {
		parts := make([]string, len(inc.CollectedInfo))
		for i, f := range inc.CollectedInfo {
			parts[i] = f.Name + " - " + f.Value
		}
		fmt.Fprintf(&sb, " We collected the following information: %s.", strings.Join(parts, ", "))
	}
	if len(inc.MissingInfo) > 0 && inc.Status == incident.StatusPendingInfo {
		fmt.Fprintf(&sb, " We still need: %s.", strings.Join(inc.MissingInfo, ", "))
	}
	if inc.Status == incident.StatusResolved {
		fmt.Fprintf(&sb, "\n\n**Solution:**\n%s", solutionText(inc))
	}
	fmt.Fprintf(&sb, "\n\n**Message from Admin:** %s", adminMessage(inc))
	return sb.String()
}

// selectionSummary is shown when the user picks an incident that is no
// longer collecting information.
func selectionSummary(inc *incident.Incident) string {
	head := fmt.Sprintf("**%s** - Status: **%s**\n\n", inc.ID, inc.Status)
	switch inc.Status {
	case incident.StatusOpen:
		return head + "All required information has been collected. Our IT team is working on this. Is there anything else you'd like to add?"
	case incident.StatusResolved:
		return head + "This incident has been resolved. Would you like to create a new incident?"
	default:
		return head + "This incident has been closed. Would you like to create a new incident?"
	}
}
