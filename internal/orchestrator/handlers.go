package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/intent"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

const noActiveToClose = "You don't have any active incidents to close."

func (o *Orchestrator) handleIntent(ctx context.Context, t *turn, cur *incident.Incident, res intent.Result) (TurnResult, error) {
	switch res.Intent {
	case intent.Greeting, intent.GreetingContext:
		return o.greet(ctx, t, cur), nil

	case intent.UnrelatedQuery:
		if cur != nil && cur.Status == incident.StatusPendingInfo {
			msg := o.phrase(ctx, phrasing.UnrelatedQuery, phrasing.Params{phrasing.Question: cur.LastQuestion()})
			return TurnResult{Message: msg, IncidentID: cur.ID, Status: incidentStatus(cur.Status)}, nil
		}
		return o.generalQuery(ctx, t), nil

	case intent.ClearSession:
		t.sess.Reset()
		o.log.Info().Str("session_id", t.sess.ID).Msg("session cleared")
		return TurnResult{
			Message:           o.phrase(ctx, phrasing.FreshSession, nil),
			Status:            StatusSessionCleared,
			Action:            ActionClearSession,
			ShowActionButtons: true,
			ActionButtons:     greetingButtons,
		}, nil

	case intent.TrackIncident:
		if res.IncidentID != "" {
			return o.track(ctx, res.IncidentID)
		}
		return TurnResult{Message: o.phrase(ctx, phrasing.AskTrackID, nil), Status: StatusAwaitingIncidentID}, nil

	case intent.ProvideIncidentID:
		if res.IncidentID == "" {
			return TurnResult{Message: o.phrase(ctx, phrasing.AskTrackID, nil), Status: StatusAwaitingIncidentID}, nil
		}
		return o.track(ctx, res.IncidentID)

	case intent.AskIncidentType:
		t.sess.Awaiting = session.SlotIssueDescription
		return TurnResult{Message: o.phrase(ctx, phrasing.AskIncidentType, nil), Status: StatusAwaitingIssueDescription}, nil

	case intent.AskIncompleteIncident:
		t.sess.Awaiting = session.SlotPreviousSolutionID
		return TurnResult{Message: o.phrase(ctx, phrasing.AskIncompleteID, nil), Status: StatusAwaitingPreviousIncidentID}, nil

	case intent.AskPreviousSolution:
		t.sess.Awaiting = session.SlotPreviousSolutionID
		return TurnResult{Message: o.phrase(ctx, phrasing.AskPreviousID, nil), Status: StatusAwaitingPreviousIncidentID}, nil

	case intent.CloseIncident:
		return o.closeCurrent(ctx, t, cur)

	case intent.NewIncident:
		if len(t.sess.ActiveIncidents) > 0 {
			return o.promptKeepOrIgnore(ctx, t, cur), nil
		}
		return o.createIncident(ctx, t, t.input)

	case intent.ContinueIncident:
		inc, err := o.latestPending(ctx, t.sess)
		if err != nil {
			return TurnResult{}, err
		}
		if inc != nil {
			return o.collect(ctx, t, inc)
		}
		return o.createIncident(ctx, t, t.input)

	default:
		return o.generalQuery(ctx, t), nil
	}
}

func (o *Orchestrator) greet(ctx context.Context, t *turn, cur *incident.Incident) TurnResult {
	if heuristics.IsGoodbye(t.input) {
		return TurnResult{
			Message:           o.phrase(ctx, phrasing.Goodbye, nil),
			ShowActionButtons: true,
			ActionButtons:     greetingButtons,
		}
	}
	if cur == nil {
		return TurnResult{
			Message:           o.phrase(ctx, phrasing.Greeting, nil),
			ShowActionButtons: true,
			ActionButtons:     greetingButtons,
		}
	}
	if cur.Status == incident.StatusPendingInfo {
		msg := o.phrase(ctx, phrasing.GreetingContext, phrasing.Params{
			phrasing.IncidentID: cur.ID,
			phrasing.Question:   cur.LastQuestion(),
		})
		return TurnResult{Message: msg, IncidentID: cur.ID, Status: incidentStatus(cur.Status)}
	}
	msg := o.phrase(ctx, phrasing.GreetingIdle, phrasing.Params{phrasing.IncidentID: cur.ID})
	return TurnResult{Message: msg, IncidentID: cur.ID, Status: incidentStatus(cur.Status)}
}

func (o *Orchestrator) generalQuery(ctx context.Context, t *turn) TurnResult {
	return TurnResult{Message: o.phrase(ctx, phrasing.GeneralQuery, phrasing.Params{phrasing.Query: t.input})}
}

// track reports the status of any incident by id.
func (o *Orchestrator) track(ctx context.Context, id string) (TurnResult, error) {
	inc, err := o.incidents.Get(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	if inc == nil {
		return TurnResult{
			Message: fmt.Sprintf("I couldn't find an incident with ID: %s. Please check the ID and try again.", id),
			Status:  StatusNotFound,
		}, nil
	}
	return TurnResult{Message: statusReport(inc), IncidentID: inc.ID, Status: incidentStatus(inc.Status)}, nil
}

// closeCurrent closes the session's current incident and drops it from
// the active list.
func (o *Orchestrator) closeCurrent(ctx context.Context, t *turn, cur *incident.Incident) (TurnResult, error) {
	if cur == nil {
		return TurnResult{Message: noActiveToClose}, nil
	}

	err := cur.Close(o.now())
	if errors.Is(err, incident.ErrInvalidTransition) {
		t.sess.RemoveIncident(cur.ID)
		return TurnResult{
			Message:    fmt.Sprintf("Incident %s is already %s.", cur.ID, cur.Status),
			IncidentID: cur.ID,
			Status:     incidentStatus(cur.Status),
		}, nil
	}
	if err != nil {
		return TurnResult{}, err
	}
	if err := o.incidents.Update(ctx, cur.ID, incident.ProgressPatch(cur)); err != nil {
		return TurnResult{}, fmt.Errorf("closing incident %s: %w", cur.ID, err)
	}
	t.sess.RemoveIncident(cur.ID)
	o.log.Info().Str("session_id", t.sess.ID).Str("incident_id", cur.ID).Msg("incident closed by user")

	msg := o.phrase(ctx, phrasing.IncidentClosed, phrasing.Params{
		phrasing.IncidentID: cur.ID,
		phrasing.UserDemand: cur.UserDemand,
	})
	return TurnResult{Message: msg, IncidentID: cur.ID, Status: StatusIncidentClosed}, nil
}

// promptKeepOrIgnore stages the utterance as a new issue and asks what to
// do with the incidents already active.
func (o *Orchestrator) promptKeepOrIgnore(ctx context.Context, t *turn, cur *incident.Incident) TurnResult {
	t.sess.Awaiting = session.SlotKeepOrIgnore
	t.sess.PendingQuery = t.input

	p := phrasing.Params{
		phrasing.NewIssue:   t.input,
		phrasing.IncidentID: t.sess.CurrentIncident(),
		phrasing.UserDemand: "your current issue",
	}
	if cur != nil {
		p[phrasing.IncidentID] = cur.ID
		p[phrasing.UserDemand] = cur.UserDemand
	}
	return TurnResult{
		Message:           o.phrase(ctx, phrasing.KeepOrIgnore, p),
		IncidentID:        p[phrasing.IncidentID],
		Status:            StatusAwaitingDecision,
		ShowActionButtons: true,
		ActionButtons:     keepIgnoreButtons,
	}
}
