package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/helpdesk/internal/db"
	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/incident"
	"github.com/ziadkadry99/helpdesk/internal/intent"
	"github.com/ziadkadry99/helpdesk/internal/kb"
	"github.com/ziadkadry99/helpdesk/internal/logging"
	"github.com/ziadkadry99/helpdesk/internal/phrasing"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

var outlookEntry = kb.Candidate{
	Entry: kb.Entry{
		ID:           "KB_1",
		UseCase:      "Outlook Not Opening",
		RequiredInfo: []string{"Error Message", "Operating System"},
		Questions: []string{
			"Do you see any error message when Outlook fails to open?",
			"Which operating system are you using?",
		},
		SolutionSteps: "- Restart Outlook in safe mode.",
	},
	Similarity: 0.8,
}

// stubKB matches any query mentioning outlook.
type stubKB struct {
	err error
}

func (s stubKB) BestMatch(_ context.Context, query string) (*kb.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	if strings.Contains(strings.ToLower(query), "outlook") {
		c := outlookEntry
		return &c, nil
	}
	return nil, nil
}

type fixedClassifier struct {
	res intent.Result
	err error
}

func (f fixedClassifier) Classify(context.Context, intent.Request) (intent.Result, error) {
	return f.res, f.err
}

type failingCreate struct {
	IncidentStore
}

func (failingCreate) Create(context.Context, *incident.Incident) error {
	return errors.New("disk full")
}

type harness struct {
	o         *Orchestrator
	sessions  *session.Store
	incidents *incident.Store
}

func newHarness(t *testing.T, deps Deps, opts Options) *harness {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	h := &harness{
		sessions:  session.NewStore(database),
		incidents: incident.NewStore(database),
	}
	if deps.Sessions == nil {
		deps.Sessions = h.sessions
	}
	if deps.Incidents == nil {
		deps.Incidents = h.incidents
	}
	if deps.KB == nil {
		deps.KB = stubKB{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 10, 22, 15, 7, 44, 0, time.UTC) }
	}
	h.o = New(deps, opts, logging.Nop())
	return h
}

func (h *harness) session(t *testing.T, id string) *session.Session {
	t.Helper()
	sess, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

func (h *harness) incident(t *testing.T, id string) *incident.Incident {
	t.Helper()
	inc, err := h.incidents.Get(context.Background(), id)
	require.NoError(t, err)
	return inc
}

// startOutlook opens the KB-backed Outlook incident in a fresh session.
func (h *harness) startOutlook(t *testing.T) TurnResult {
	t.Helper()
	res := h.o.ProcessTurn(context.Background(), "outlook is not opening", "")
	require.NotEmpty(t, res.IncidentID, res.Message)
	return res
}

func TestFreshSessionKBMatchCreatesIncident(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	res := h.startOutlook(t)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, Status(incident.StatusPendingInfo), res.Status)
	assert.Equal(t, outlookEntry.Questions[0], res.Message)

	inc := h.incident(t, res.IncidentID)
	require.NotNil(t, inc)
	assert.Equal(t, "KB_1", inc.KBID)
	assert.Equal(t, []string{"Error Message", "Operating System"}, inc.MissingInfo)
	assert.False(t, inc.IsNewKBEntry)

	sess := h.session(t, res.SessionID)
	assert.Equal(t, []string{res.IncidentID}, sess.ActiveIncidents)
	require.Len(t, sess.Context, 2)
	assert.Equal(t, session.RoleUser, sess.Context[0].Role)
	assert.Equal(t, "outlook is not opening", sess.Context[0].Content)
}

func TestNegativeErrorAnswerIsCollected(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(context.Background(), "no error", first.SessionID)
	assert.Equal(t, first.IncidentID, res.IncidentID)
	assert.Equal(t, outlookEntry.Questions[1], res.Message)

	inc := h.incident(t, first.IncidentID)
	require.Len(t, inc.CollectedInfo, 1)
	assert.Equal(t, incident.Field{Name: "Error Message", Value: heuristics.NoErrorValue}, inc.CollectedInfo[0])
	assert.Equal(t, []string{"Operating System"}, inc.MissingInfo)
	assert.Equal(t, incident.StatusPendingInfo, inc.Status)
}

func TestGreetingKeepsActiveIncident(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	first := h.startOutlook(t)
	before := h.incident(t, first.IncidentID)

	res := h.o.ProcessTurn(context.Background(), "hi", first.SessionID)
	assert.Equal(t, first.IncidentID, res.IncidentID)
	assert.Contains(t, res.Message, "Welcome back! Continuing with incident "+first.IncidentID)
	assert.Contains(t, res.Message, outlookEntry.Questions[0])

	after := h.incident(t, first.IncidentID)
	assert.Equal(t, before.MissingInfo, after.MissingInfo)
	assert.Empty(t, after.CollectedInfo)
	assert.Equal(t, []string{first.IncidentID}, h.session(t, first.SessionID).ActiveIncidents)
}

func TestDifferentIssuePromptsKeepOrIgnore(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(context.Background(), "VPN is not connecting at all", first.SessionID)
	assert.Equal(t, StatusAwaitingDecision, res.Status)
	assert.True(t, res.ShowActionButtons)
	assert.Equal(t, keepIgnoreButtons, res.ActionButtons)

	sess := h.session(t, first.SessionID)
	assert.Equal(t, session.SlotKeepOrIgnore, sess.Awaiting)
	assert.Equal(t, "VPN is not connecting at all", sess.PendingQuery)
	assert.Equal(t, []string{first.IncidentID}, sess.ActiveIncidents)

	inc := h.incident(t, first.IncidentID)
	assert.Empty(t, inc.CollectedInfo)
	assert.Equal(t, incident.StatusPendingInfo, inc.Status)
}

func TestIgnoreRetiresPreviousIncidents(t *testing.T) {
	for _, policy := range []IgnorePolicy{IgnoreClose, IgnoreDelete} {
		t.Run(string(policy), func(t *testing.T) {
			h := newHarness(t, Deps{}, Options{IgnorePolicy: policy})
			ctx := context.Background()
			first := h.startOutlook(t)
			h.o.ProcessTurn(ctx, "VPN is not connecting at all", first.SessionID)

			res := h.o.ProcessTurn(ctx, "ignore", first.SessionID)
			require.NotEmpty(t, res.IncidentID)
			assert.NotEqual(t, first.IncidentID, res.IncidentID)
			assert.Equal(t, Status(incident.StatusPendingInfo), res.Status)

			created := h.incident(t, res.IncidentID)
			require.NotNil(t, created)
			assert.Equal(t, "VPN is not connecting at all", created.UserDemand)
			assert.True(t, created.IsNewKBEntry)
			assert.True(t, created.NeedsKBApproval)
			assert.Equal(t, []string{"Operating System", "VPN Client", "Network Type", "Error Message"}, created.RequiredInfo)
			assert.Len(t, created.Questions, 4)

			sess := h.session(t, first.SessionID)
			assert.Equal(t, []string{res.IncidentID}, sess.ActiveIncidents)
			assert.Equal(t, session.SlotNone, sess.Awaiting)
			assert.Empty(t, sess.PendingQuery)
			// Only the ignore exchange survives the reset.
			require.Len(t, sess.Context, 2)
			assert.Equal(t, "ignore", sess.Context[0].Content)

			old := h.incident(t, first.IncidentID)
			if policy == IgnoreDelete {
				assert.Nil(t, old)
			} else {
				require.NotNil(t, old)
				assert.Equal(t, incident.StatusClosed, old.Status)
				assert.NotNil(t, old.ClosedOn)
			}
		})
	}
}

func TestKeepCreatesAndAsksForSelection(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)
	h.o.ProcessTurn(ctx, "VPN is not connecting at all", first.SessionID)

	res := h.o.ProcessTurn(ctx, "keep", first.SessionID)
	assert.Equal(t, StatusAwaitingIncidentSelection, res.Status)
	assert.Contains(t, res.Message, first.IncidentID+" - outlook is not opening")

	sess := h.session(t, first.SessionID)
	require.Len(t, sess.ActiveIncidents, 2)
	second := sess.ActiveIncidents[1]
	assert.Contains(t, res.Message, second+" - VPN is not connecting at all")
	assert.Equal(t, session.SlotIncidentIDSelection, sess.Awaiting)

	// An id that isn't active re-prompts.
	res = h.o.ProcessTurn(ctx, "INC19990101000000", first.SessionID)
	assert.Equal(t, StatusAwaitingIncidentSelection, res.Status)
	assert.Contains(t, res.Message, first.IncidentID)

	res = h.o.ProcessTurn(ctx, strings.ToLower(first.IncidentID), first.SessionID)
	assert.Equal(t, first.IncidentID, res.IncidentID)
	assert.Equal(t, "Continuing with "+first.IncidentID+".\n\n"+outlookEntry.Questions[0], res.Message)

	sess = h.session(t, first.SessionID)
	assert.Equal(t, session.SlotNone, sess.Awaiting)
	assert.Equal(t, first.IncidentID, sess.CurrentIncident())
}

func TestKeepOrIgnoreRetry(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)
	h.o.ProcessTurn(ctx, "VPN is not connecting at all", first.SessionID)

	res := h.o.ProcessTurn(ctx, "maybe later", first.SessionID)
	assert.Equal(t, StatusAwaitingDecision, res.Status)
	assert.Equal(t, phrasing.Render(phrasing.KeepOrIgnoreRetry, nil), res.Message)
	assert.Equal(t, session.SlotKeepOrIgnore, h.session(t, first.SessionID).Awaiting)
}

func TestCompletionOpensIncidentOnce(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)
	h.o.ProcessTurn(ctx, "no error", first.SessionID)

	res := h.o.ProcessTurn(ctx, "Windows 11", first.SessionID)
	completed := phrasing.Render(phrasing.IncidentCompleted, phrasing.Params{phrasing.IncidentID: first.IncidentID})
	assert.Equal(t, completed, res.Message)
	assert.Equal(t, Status(incident.StatusOpen), res.Status)

	inc := h.incident(t, first.IncidentID)
	assert.Equal(t, incident.StatusOpen, inc.Status)
	assert.Empty(t, inc.MissingInfo)
	assert.NotNil(t, inc.CompletedAt)
	historyLen := len(inc.History)

	for _, input := range []string{"thanks", "Windows 10", "what's the weather like"} {
		res = h.o.ProcessTurn(ctx, input, first.SessionID)
		assert.NotEqual(t, completed, res.Message, input)
	}
	after := h.incident(t, first.IncidentID)
	assert.Len(t, after.History, historyLen)
	assert.Len(t, after.CollectedInfo, 2)
}

func TestRejectedAnswerRepeatsQuestion(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)
	h.o.ProcessTurn(ctx, "no error", first.SessionID)

	// ContinueIncident routes a non-answer to the pending field.
	res := h.o.ProcessTurn(ctx, "it just sits there", first.SessionID)
	assert.Equal(t, "I need specific information about: Operating System. "+outlookEntry.Questions[1], res.Message)
	assert.Equal(t, []string{"Operating System"}, h.incident(t, first.IncidentID).MissingInfo)
}

func TestIssueDescriptionSlot(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()

	res := h.o.ProcessTurn(ctx, "I want to create a new incident", "")
	assert.Equal(t, StatusAwaitingIssueDescription, res.Status)
	assert.Equal(t, session.SlotIssueDescription, h.session(t, res.SessionID).Awaiting)

	res = h.o.ProcessTurn(ctx, "outlook is not opening", res.SessionID)
	require.NotEmpty(t, res.IncidentID)
	assert.Equal(t, outlookEntry.Questions[0], res.Message)
	assert.Equal(t, session.SlotNone, h.session(t, res.SessionID).Awaiting)
}

func TestNonTechnicalDescriptionCreatesNothing(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	res := h.o.ProcessTurn(context.Background(), "what's for lunch today", "")
	assert.Equal(t, StatusNotTechnical, res.Status)
	assert.Empty(t, res.IncidentID)
	assert.Empty(t, h.session(t, res.SessionID).ActiveIncidents)
}

func TestPreviousSolutionSlot(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()

	resolved := incident.New("INC20251001090000", incident.Draft{
		SessionID:     "someone-else",
		UserDemand:    "printer jams",
		SolutionSteps: "- Clear the paper tray.",
	}, time.Now())
	require.NoError(t, resolved.SetStatus(incident.StatusResolved, time.Now()))
	require.NoError(t, h.incidents.Create(ctx, resolved))

	res := h.o.ProcessTurn(ctx, "view previous incident", "")
	assert.Equal(t, StatusAwaitingPreviousIncidentID, res.Status)
	sid := res.SessionID

	res = h.o.ProcessTurn(ctx, "I don't remember it", sid)
	assert.Contains(t, res.Message, "couldn't find a valid Incident ID")
	assert.Equal(t, session.SlotPreviousSolutionID, h.session(t, sid).Awaiting)

	res = h.o.ProcessTurn(ctx, "INC20251001090000", sid)
	assert.Equal(t, StatusSolutionDisplayed, res.Status)
	assert.Contains(t, res.Message, "- Clear the paper tray.")
	assert.Contains(t, res.Message, "printer jams")
	assert.Equal(t, session.SlotNone, h.session(t, sid).Awaiting)
	assert.Empty(t, h.session(t, sid).ActiveIncidents)

	h.o.ProcessTurn(ctx, "view previous incident", sid)
	res = h.o.ProcessTurn(ctx, "INC20990101000000", sid)
	assert.Equal(t, StatusIncidentNotFound, res.Status)
}

func TestIncompleteIncidentIsReattached(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(ctx, "show my incomplete incident", "")
	assert.Equal(t, StatusAwaitingPreviousIncidentID, res.Status)
	sid := res.SessionID
	require.NotEqual(t, first.SessionID, sid)

	res = h.o.ProcessTurn(ctx, first.IncidentID, sid)
	assert.Equal(t, first.IncidentID, res.IncidentID)
	assert.Contains(t, res.Message, "Let's continue: "+outlookEntry.Questions[0])
	assert.Equal(t, []string{first.IncidentID}, h.session(t, sid).ActiveIncidents)
}

func TestTrackIncident(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(ctx, "track "+first.IncidentID, "")
	assert.Equal(t, Status(incident.StatusPendingInfo), res.Status)
	assert.Contains(t, res.Message, "outlook is not opening")
	assert.Contains(t, res.Message, "**Message from Admin:** "+incident.DefaultAdminMessage(incident.StatusPendingInfo))

	res = h.o.ProcessTurn(ctx, "track my incident", "")
	assert.Equal(t, StatusAwaitingIncidentID, res.Status)

	res = h.o.ProcessTurn(ctx, "track INC20990101000000", "")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, "I couldn't find an incident with ID: INC20990101000000. Please check the ID and try again.", res.Message)
}

func TestCloseIncident(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(ctx, "close my incident", first.SessionID)
	assert.Equal(t, StatusIncidentClosed, res.Status)
	assert.Contains(t, res.Message, first.IncidentID)
	assert.Equal(t, incident.StatusClosed, h.incident(t, first.IncidentID).Status)
	assert.Empty(t, h.session(t, first.SessionID).ActiveIncidents)

	res = h.o.ProcessTurn(ctx, "close my incident", first.SessionID)
	assert.Equal(t, noActiveToClose, res.Message)
}

func TestClearSessionIntent(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(context.Background(), "clear session", first.SessionID)
	assert.Equal(t, StatusSessionCleared, res.Status)
	assert.Equal(t, ActionClearSession, res.Action)
	assert.Equal(t, greetingButtons, res.ActionButtons)

	sess := h.session(t, first.SessionID)
	assert.Empty(t, sess.ActiveIncidents)
	// The incident itself is left alone.
	assert.Equal(t, incident.StatusPendingInfo, h.incident(t, first.IncidentID).Status)
}

func TestGreetingOnFreshSession(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	res := h.o.ProcessTurn(context.Background(), "hello", "")
	assert.True(t, res.ShowActionButtons)
	assert.Equal(t, greetingButtons, res.ActionButtons)
	assert.Empty(t, res.IncidentID)
}

func TestUnrelatedQueryRepeatsQuestion(t *testing.T) {
	h := newHarness(t, Deps{Classifier: fixedClassifier{res: intent.Result{Intent: intent.UnrelatedQuery}}}, Options{})
	ctx := context.Background()
	res := h.o.CreateIncident(ctx, "outlook is not opening", "")
	require.NotEmpty(t, res.IncidentID)

	res = h.o.ProcessTurn(ctx, "who won the game yesterday", res.SessionID)
	assert.Contains(t, res.Message, outlookEntry.Questions[0])
}

func TestClassifierErrorFallsBackToKeywords(t *testing.T) {
	h := newHarness(t, Deps{Classifier: fixedClassifier{err: errors.New("model offline")}}, Options{})
	res := h.o.ProcessTurn(context.Background(), "track INC20990101000000", "")
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestCollaboratorFailureYieldsErrorResult(t *testing.T) {
	t.Run("kb", func(t *testing.T) {
		h := newHarness(t, Deps{KB: stubKB{err: errors.New("index offline")}}, Options{})
		res := h.o.ProcessTurn(context.Background(), "outlook is not opening", "")
		assert.Equal(t, StatusError, res.Status)
		assert.Equal(t, phrasing.Render(phrasing.Error, nil), res.Message)
		assert.NotEmpty(t, res.SessionID)
	})
	t.Run("store", func(t *testing.T) {
		h := newHarness(t, Deps{}, Options{})
		h.o.incidents = failingCreate{IncidentStore: h.incidents}
		res := h.o.ProcessTurn(context.Background(), "outlook is not opening", "")
		assert.Equal(t, StatusError, res.Status)
		assert.Empty(t, res.IncidentID)
	})
}

func TestContextIsCapped(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	sid := ""
	for i := 0; i < session.MaxContext; i++ {
		sid = h.o.ProcessTurn(ctx, "hello", sid).SessionID
	}
	sess := h.session(t, sid)
	assert.Len(t, sess.Context, session.MaxContext)
	assert.Equal(t, session.RoleUser, sess.Context[0].Role)
}

func TestEmptyInputRepeatsQuestion(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	first := h.startOutlook(t)

	res := h.o.ProcessTurn(context.Background(), "   ", first.SessionID)
	assert.Equal(t, outlookEntry.Questions[0], res.Message)
	assert.Len(t, h.session(t, first.SessionID).Context, 2)
}

func TestSessionHistoryAndClear(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()
	first := h.startOutlook(t)

	history, err := h.o.GetSessionHistory(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = h.o.GetSessionHistory(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)

	ok, err := h.o.ClearSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.True(t, ok)
	sess := h.session(t, first.SessionID)
	assert.Empty(t, sess.Context)
	assert.Empty(t, sess.ActiveIncidents)

	ok, err = h.o.ClearSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveSession(t *testing.T) {
	h := newHarness(t, Deps{}, Options{})
	ctx := context.Background()

	id, err := h.o.ResolveSession(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	again, err := h.o.ResolveSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	named, err := h.o.ResolveSession(ctx, "browser-tab-1")
	require.NoError(t, err)
	assert.Equal(t, "browser-tab-1", named)
}

func TestRequestsAreNotRecordedAsFieldValues(t *testing.T) {
	for _, input := range []string{
		"close my incident",
		"start over",
		"thanks",
		"track my incident",
		"status",
		"track",
		"track INC20251022150744",
		"view previous solution",
	} {
		t.Run(input, func(t *testing.T) {
			h := newHarness(t, Deps{}, Options{})
			ctx := context.Background()
			first := h.o.ProcessTurn(ctx, "printer not working", "")
			require.NotEmpty(t, first.IncidentID, first.Message)
			require.Equal(t, []string{"Printer Model", "Error Message"}, h.incident(t, first.IncidentID).MissingInfo)

			h.o.ProcessTurn(ctx, input, first.SessionID)

			inc := h.incident(t, first.IncidentID)
			require.NotNil(t, inc)
			assert.Empty(t, inc.CollectedInfo)
			assert.Equal(t, []string{"Printer Model", "Error Message"}, inc.MissingInfo)
		})
	}
}
