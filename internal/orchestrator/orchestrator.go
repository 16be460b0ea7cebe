// Package orchestrator runs the conversation: for every user turn it
// decides what is being asked, which incident it applies to and what to
// say next, and keeps session and incident state in step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/intent"
	"github.com/ziadkadry99/helpdesk/internal/logging"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

const defaultTimeout = 30 * time.Second

// Deps are the orchestrator's collaborators. Sessions, Incidents and KB
// are required; the rest default to the keyword/template
// implementations.
type Deps struct {
	Sessions   SessionStore
	Incidents  IncidentStore
	KB         KBLookup
	Classifier intent.Classifier
	Analyzer   intent.Analyzer
	Phraser    phrasing.Phraser
	IDs        *incident.IDGenerator
}

// Options tune behavior. Zero values pick the defaults.
type Options struct {
	IgnorePolicy IgnorePolicy
	// Timeout bounds each collaborator call (classifier, analyzer, KB
	// lookup, phraser).
	Timeout time.Duration
	Now     func() time.Time
}

// Orchestrator processes conversation turns.
type Orchestrator struct {
	sessions   SessionStore
	incidents  IncidentStore
	kb         KBLookup
	classifier intent.Classifier
	analyzer   intent.Analyzer
	phraser    phrasing.Phraser
	ids        *incident.IDGenerator

	ignorePolicy IgnorePolicy
	timeout      time.Duration
	now          func() time.Time
	log          *logging.Logger
}

// New wires an orchestrator.
func New(deps Deps, opts Options, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		sessions:     deps.Sessions,
		incidents:    deps.Incidents,
		kb:           deps.KB,
		classifier:   deps.Classifier,
		analyzer:     deps.Analyzer,
		phraser:      deps.Phraser,
		ids:          deps.IDs,
		ignorePolicy: opts.IgnorePolicy,
		timeout:      opts.Timeout,
		now:          opts.Now,
		log:          logger.Sub("orchestrator"),
	}
	if o.classifier == nil {
		o.classifier = intent.KeywordClassifier{}
	}
	if o.analyzer == nil {
		o.analyzer = intent.KeywordAnalyzer{}
	}
	if o.phraser == nil {
		o.phraser = phrasing.Templates{}
	}
	if o.ids == nil {
		o.ids = incident.NewIDGenerator()
	}
	if o.ignorePolicy == "" {
		o.ignorePolicy = IgnoreClose
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// turn is the working state of one ProcessTurn call. Handlers mutate sess
// in memory; it is saved once at the end.
type turn struct {
	sess  *session.Session
	input string
}

// ProcessTurn handles one user utterance. An empty sessionID starts a new
// session. Failures are logged and reported as a result with status
// "error"; ProcessTurn itself never fails.
func (o *Orchestrator) ProcessTurn(ctx context.Context, input, sessionID string) TurnResult {
	return o.run(ctx, sessionID, input, func(ctx context.Context, t *turn) (TurnResult, error) {
		if t.input == "" {
			return o.handleEmpty(ctx, t)
		}
		return o.dispatch(ctx, t)
	})
}

// CreateIncident opens an incident for description in the given session
// and returns its first question, recorded like a normal turn.
func (o *Orchestrator) CreateIncident(ctx context.Context, description, sessionID string) TurnResult {
	return o.run(ctx, sessionID, description, func(ctx context.Context, t *turn) (TurnResult, error) {
		return o.createIncident(ctx, t, t.input)
	})
}

// run loads the session, lets handle produce the reply, records the
// exchange in the session context and saves the session.
func (o *Orchestrator) run(ctx context.Context, sessionID, input string, handle func(context.Context, *turn) (TurnResult, error)) TurnResult {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		o.log.Error().Err(err).Str("session_id", sessionID).Msg("loading session")
		return o.errorResult(sessionID)
	}

	t := &turn{sess: sess, input: strings.TrimSpace(input)}
	res, err := handle(ctx, t)
	if err != nil {
		o.log.Error().Err(err).Str("session_id", sess.ID).Msg("processing turn")
		return o.errorResult(sess.ID)
	}
	res.SessionID = sess.ID

	if t.input != "" {
		sess.AppendTurn(session.RoleUser, t.input)
		sess.AppendTurn(session.RoleAssistant, res.Message)
	}
	if err := o.sessions.Update(ctx, sess.ID, session.FullPatch(sess)); err != nil {
		o.log.Error().Err(err).Str("session_id", sess.ID).Msg("saving session")
		return o.errorResult(sess.ID)
	}
	return res
}

// dispatch walks the priority ladder; the first rung that applies
// handles the turn.
func (o *Orchestrator) dispatch(ctx context.Context, t *turn) (TurnResult, error) {
	if t.sess.Awaiting != session.SlotNone {
		return o.handleSlot(ctx, t)
	}

	cur, err := o.currentIncident(ctx, t.sess)
	if err != nil {
		return TurnResult{}, err
	}
	if cur != nil && cur.Status == incident.StatusPendingInfo {
		field := cur.CurrentField()
		answer := heuristics.LooksLikeAnswer(field, t.input)
		if !answer && heuristics.IsTechnicalIssue(t.input) &&
			heuristics.IsDifferentIssue(cur.UserDemand, t.input) && !heuristics.IsControlRequest(t.input) {
			return o.promptKeepOrIgnore(ctx, t, cur), nil
		}
		if answer {
			return o.collect(ctx, t, cur)
		}
	}

	res := o.classify(ctx, t)
	o.log.Debug().Str("session_id", t.sess.ID).Str("intent", string(res.Intent)).
		Float64("confidence", res.Confidence).Msg("classified turn")
	return o.handleIntent(ctx, t, cur, res)
}

func (o *Orchestrator) classify(ctx context.Context, t *turn) intent.Result {
	req := intent.Request{
		Utterance:         t.input,
		Context:           t.sess.Context,
		HasActiveIncident: len(t.sess.ActiveIncidents) > 0,
		SessionID:         t.sess.ID,
	}
	cctx, cancel := o.bounded(ctx)
	defer cancel()
	res, err := o.classifier.Classify(cctx, req)
	if err != nil {
		o.log.Warn().Err(err).Str("session_id", t.sess.ID).Msg("intent classification failed, using keyword rules")
		res = intent.Fallback(req)
	}
	if res.IncidentID == "" {
		res.IncidentID = heuristics.ExtractIncidentID(t.input)
	}
	return res
}

func (o *Orchestrator) handleEmpty(ctx context.Context, t *turn) (TurnResult, error) {
	cur, err := o.currentIncident(ctx, t.sess)
	if err != nil {
		return TurnResult{}, err
	}
	if cur != nil && cur.Status == incident.StatusPendingInfo {
		return TurnResult{Message: cur.LastQuestion(), IncidentID: cur.ID, Status: incidentStatus(cur.Status)}, nil
	}
	return TurnResult{Message: o.phrase(ctx, phrasing.GeneralQuery, nil)}, nil
}

// ResolveSession returns the id of an existing session, creating one when
// id is empty or unknown.
func (o *Orchestrator) ResolveSession(ctx context.Context, id string) (string, error) {
	sess, err := o.loadSession(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// GetSessionHistory returns the rolling conversation context of a
// session; an unknown session has an empty history.
func (o *Orchestrator) GetSessionHistory(ctx context.Context, id string) ([]session.Turn, error) {
	sess, err := o.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []session.Turn{}, nil
	}
	return sess.Context, nil
}

// ClearSession empties a session in place. It reports false for an
// unknown session.
func (o *Orchestrator) ClearSession(ctx context.Context, id string) (bool, error) {
	sess, err := o.sessions.Get(ctx, id)
	if err != nil || sess == nil {
		return false, err
	}
	sess.Reset()
	if err := o.sessions.Update(ctx, id, session.FullPatch(sess)); err != nil {
		return false, fmt.Errorf("clearing session %s: %w", id, err)
	}
	o.log.Info().Str("session_id", id).Msg("session cleared")
	return true, nil
}

func (o *Orchestrator) loadSession(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, err := o.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	} else {
		id = uuid.NewString()
	}
	sess, err := o.sessions.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	o.log.Info().Str("session_id", id).Msg("session created")
	return sess, nil
}

// currentIncident loads the session's current incident. Ids that no
// longer resolve are dropped from the active list.
func (o *Orchestrator) currentIncident(ctx context.Context, sess *session.Session) (*incident.Incident, error) {
	for {
		id := sess.CurrentIncident()
		if id == "" {
			return nil, nil
		}
		inc, err := o.incidents.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if inc != nil {
			return inc, nil
		}
		o.log.Warn().Str("session_id", sess.ID).Str("incident_id", id).Msg("dropping unknown incident from session")
		sess.RemoveIncident(id)
	}
}

// latestPending returns the most recent pending_info incident in the
// active list.
func (o *Orchestrator) latestPending(ctx context.Context, sess *session.Session) (*incident.Incident, error) {
	for i := len(sess.ActiveIncidents) - 1; i >= 0; i-- {
		inc, err := o.incidents.Get(ctx, sess.ActiveIncidents[i])
		if err != nil {
			return nil, err
		}
		if inc != nil && inc.Status == incident.StatusPendingInfo {
			return inc, nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}

// phrase asks the phraser for text, falling back to the template.
func (o *Orchestrator) phrase(ctx context.Context, s phrasing.Situation, p phrasing.Params) string {
	cctx, cancel := o.bounded(ctx)
	defer cancel()
	text, err := o.phraser.Phrase(cctx, s, p)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil && !errors.Is(err, context.Canceled) {
			o.log.Warn().Err(err).Str("situation", string(s)).Msg("phrasing failed, using template")
		}
		return phrasing.Render(s, p)
	}
	return text
}

func (o *Orchestrator) errorResult(sessionID string) TurnResult {
	return TurnResult{
		Message:   phrasing.Render(phrasing.Error, nil),
		SessionID: sessionID,
		Status:    StatusError,
	}
}
