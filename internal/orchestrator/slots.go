package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

const exampleIncidentID = "INC20251022150744"

func (o *Orchestrator) handleSlot(ctx context.Context, t *turn) (TurnResult, error) {
	switch t.sess.Awaiting {
	case session.SlotKeepOrIgnore:
		return o.keepOrIgnore(ctx, t)
	case session.SlotIncidentIDSelection:
		return o.selectIncident(ctx, t)
	case session.SlotPreviousSolutionID:
		return o.previousIncident(ctx, t)
	case session.SlotIssueDescription:
		t.sess.ClearFollowUp()
		return o.createIncident(ctx, t, t.input)
	default:
		o.log.Warn().Str("session_id", t.sess.ID).Str("slot", string(t.sess.Awaiting)).Msg("unknown slot, clearing")
		t.sess.ClearFollowUp()
		return o.dispatch(ctx, t)
	}
}

func (o *Orchestrator) keepOrIgnore(ctx context.Context, t *turn) (TurnResult, error) {
	answer := strings.ToLower(t.input)
	query := t.sess.PendingQuery
	if query == "" {
		query = t.input
	}

	switch {
	case strings.Contains(answer, "ignore"):
		for _, id := range t.sess.ActiveIncidents {
			if err := o.retire(ctx, id); err != nil {
				return TurnResult{}, err
			}
		}
		t.sess.Reset()
		o.log.Info().Str("session_id", t.sess.ID).Str("policy", string(o.ignorePolicy)).Msg("previous incidents ignored")
		return o.createIncident(ctx, t, query)

	case strings.Contains(answer, "keep"):
		t.sess.ClearFollowUp()
		res, err := o.createIncident(ctx, t, query)
		if err != nil || res.IncidentID == "" {
			return res, err
		}
		t.sess.Awaiting = session.SlotIncidentIDSelection
		list, err := o.incidentList(ctx, t.sess.ActiveIncidents)
		if err != nil {
			return TurnResult{}, err
		}
		msg := o.phrase(ctx, phrasing.IncidentSelection, phrasing.Params{
			phrasing.IncidentList: list,
			phrasing.ExampleID:    t.sess.ActiveIncidents[0],
		})
		return TurnResult{Message: msg, Status: StatusAwaitingIncidentSelection}, nil

	default:
		return TurnResult{
			Message:           o.phrase(ctx, phrasing.KeepOrIgnoreRetry, nil),
			Status:            StatusAwaitingDecision,
			ShowActionButtons: true,
			ActionButtons:     keepIgnoreButtons,
		}, nil
	}
}

// retire applies the ignore policy to one incident.
func (o *Orchestrator) retire(ctx context.Context, id string) error {
	if o.ignorePolicy == IgnoreDelete {
		if err := o.incidents.Delete(ctx, id); err != nil && !errors.Is(err, incident.ErrNotFound) {
			return fmt.Errorf("deleting incident %s: %w", id, err)
		}
		return nil
	}

	inc, err := o.incidents.Get(ctx, id)
	if err != nil {
		return err
	}
	if inc == nil || inc.Status.Terminal() {
		return nil
	}
	if err := inc.Close(o.now()); err != nil {
		return err
	}
	if err := o.incidents.Update(ctx, id, incident.ProgressPatch(inc)); err != nil {
		return fmt.Errorf("closing incident %s: %w", id, err)
	}
	return nil
}

func (o *Orchestrator) selectIncident(ctx context.Context, t *turn) (TurnResult, error) {
	id := heuristics.ExtractIncidentID(t.input)
	var inc *incident.Incident
	if id != "" && t.sess.HasIncident(id) {
		var err error
		if inc, err = o.incidents.Get(ctx, id); err != nil {
			return TurnResult{}, err
		}
		if inc == nil {
			t.sess.RemoveIncident(id)
		}
	}

	if inc == nil {
		if len(t.sess.ActiveIncidents) == 0 {
			t.sess.ClearFollowUp()
			return TurnResult{
				Message:           o.phrase(ctx, phrasing.Greeting, nil),
				ShowActionButtons: true,
				ActionButtons:     greetingButtons,
			}, nil
		}
		list, err := o.incidentList(ctx, t.sess.ActiveIncidents)
		if err != nil {
			return TurnResult{}, err
		}
		msg := o.phrase(ctx, phrasing.IncidentSelectionRetry, phrasing.Params{
			phrasing.IncidentList: list,
			phrasing.ExampleID:    t.sess.ActiveIncidents[0],
		})
		return TurnResult{Message: msg, Status: StatusAwaitingIncidentSelection}, nil
	}

	t.sess.ClearFollowUp()
	t.sess.AddIncident(inc.ID)
	if inc.Status == incident.StatusPendingInfo {
		return TurnResult{
			Message:    fmt.Sprintf("Continuing with %s.\n\n%s", inc.ID, inc.LastQuestion()),
			IncidentID: inc.ID,
			Status:     incidentStatus(inc.Status),
		}, nil
	}
	return TurnResult{Message: selectionSummary(inc), IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
}

func (o *Orchestrator) previousIncident(ctx context.Context, t *turn) (TurnResult, error) {
	id := heuristics.ExtractIncidentID(t.input)
	if id == "" {
		return TurnResult{
			Message: fmt.Sprintf("I couldn't find a valid Incident ID in your message. Please provide the Incident ID (e.g., %s).", exampleIncidentID),
			Status:  StatusAwaitingPreviousIncidentID,
		}, nil
	}

	inc, err := o.incidents.Get(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	t.sess.ClearFollowUp()
	if inc == nil {
		return TurnResult{
			Message: fmt.Sprintf("No previous incident found for ID: %s. Please check the ID and try again.", id),
			Status:  StatusIncidentNotFound,
		}, nil
	}

	var sb strings.Builder
	switch inc.Status {
	case incident.StatusPendingInfo, incident.StatusOpen:
		t.sess.AddIncident(inc.ID)
		fmt.Fprintf(&sb, "Continuing with **%s** from where you left off.\n\n**Issue:** %s\n\n", inc.ID, inc.UserDemand)
		if inc.Status == incident.StatusPendingInfo {
			sb.WriteString("Let's continue: " + inc.LastQuestion())
		} else {
			sb.WriteString("All required information has been collected and our IT team is working on it. " +
				"Is there anything else you'd like to add?")
		}
		return TurnResult{Message: sb.String(), IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil

	case incident.StatusResolved:
		fmt.Fprintf(&sb, "**Incident %s - Solution Details**\n\n**Issue:** %s\n\n", inc.ID, inc.UserDemand)
		fmt.Fprintf(&sb, "**Solution:**\n%s\n\n", solutionText(inc))
		if inc.AdminMessage != "" {
			fmt.Fprintf(&sb, "**Message from Admin:** %s\n\n", inc.AdminMessage)
		}
		sb.WriteString("This incident has been resolved. Is there anything else I can help you with?")
		return TurnResult{Message: sb.String(), IncidentID: inc.ID, Status: StatusSolutionDisplayed}, nil

	default:
		msg := fmt.Sprintf("Incident %s is currently in **%s** status. Would you like to create a new incident?", inc.ID, inc.Status)
		return TurnResult{Message: msg, IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
	}
}
