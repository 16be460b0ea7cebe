package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

var t0 = time.Date(2025, 10, 22, 15, 7, 44, 0, time.UTC)

func outlookIncident() *Incident {
	return New("INC20251022150744", Draft{
		SessionID:    "s1",
		UserDemand:   "Outlook is not opening",
		KBID:         "KB_1",
		RequiredInfo: []string{"Outlook Version", "Error Message", "Operating System"},
		Questions: []string{
			"Which version of Outlook are you using?",
			"Do you see any error message?",
			"Which operating system are you on?",
		},
	}, t0)
}

func assertMissingInvariant(t *testing.T, inc *Incident) {
	t.Helper()
	var want []string
	for _, f := range inc.RequiredInfo {
		if _, ok := inc.Collected(f); !ok {
			want = append(want, f)
		}
	}
	if want == nil {
		want = []string{}
	}
	assert.Equal(t, want, inc.MissingInfo)
	assert.Equal(t, len(inc.MissingInfo) > 0, inc.Status == StatusPendingInfo)
}

func TestNewIncident(t *testing.T) {
	inc := New("INC1", Draft{
		UserDemand:   "  VPN drops  ",
		RequiredInfo: []string{"VPN Client", " ", "vpn client", "Network Type"},
	}, t0)

	assert.Equal(t, "VPN drops", inc.UserDemand)
	assert.Equal(t, []string{"VPN Client", "Network Type"}, inc.RequiredInfo)
	assert.Equal(t, StatusPendingInfo, inc.Status)
	assert.Equal(t, "Still need some information.", inc.AdminMessage)
	assertMissingInvariant(t, inc)
}

func TestNewIncidentWithNothingToCollect(t *testing.T) {
	inc := New("INC1", Draft{UserDemand: "printer jam"}, t0)
	assert.Equal(t, StatusOpen, inc.Status)
	require.NotNil(t, inc.CompletedAt)
	assert.Equal(t, DefaultAdminMessage(StatusOpen), inc.AdminMessage)
}

func TestQuestionForKBAligned(t *testing.T) {
	inc := outlookIncident()
	assert.Equal(t, "Which version of Outlook are you using?", inc.NextQuestion())
	assert.Equal(t, "Which operating system are you on?", inc.QuestionFor("Operating System"))
}

func TestQuestionForKBMismatchUsesGeneric(t *testing.T) {
	inc := outlookIncident()
	inc.Questions = inc.Questions[:2]
	assert.Equal(t, "Can you provide information about: Outlook Version?", inc.NextQuestion())
}

func TestQuestionForAdHoc(t *testing.T) {
	inc := New("INC1", Draft{
		RequiredInfo: []string{"Printer Model", "Location"},
		Questions:    []string{"Which printer model is it?"},
	}, t0)
	assert.Equal(t, "Which printer model is it?", inc.NextQuestion())

	outcome, err := inc.Accept("HP 4000", t0)
	require.NoError(t, err)
	assert.Equal(t, Collected, outcome)
	assert.Equal(t, GenericQuestion("Location"), inc.NextQuestion())
}

func TestAcceptWalksChecklist(t *testing.T) {
	inc := outlookIncident()

	outcome, err := inc.Accept("2019", t0)
	require.NoError(t, err)
	assert.Equal(t, Collected, outcome)
	assertMissingInvariant(t, inc)

	outcome, err = inc.Accept("no error", t0)
	require.NoError(t, err)
	assert.Equal(t, Collected, outcome)
	v, _ := inc.Collected("Error Message")
	assert.Equal(t, heuristics.NoErrorValue, v)

	outcome, err = inc.Accept("the blue one", t0)
	require.NoError(t, err)
	assert.Equal(t, Rejected, outcome)
	assert.Equal(t, "Operating System", inc.CurrentField())

	done := t0.Add(time.Minute)
	outcome, err = inc.Accept("Windows 11", done)
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, StatusOpen, inc.Status)
	require.NotNil(t, inc.CompletedAt)
	assert.Equal(t, done, *inc.CompletedAt)
	assert.Equal(t, DefaultAdminMessage(StatusOpen), inc.AdminMessage)
	assertMissingInvariant(t, inc)

	_, err = inc.Accept("anything", t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLastQuestionSkipsFollowUps(t *testing.T) {
	inc := outlookIncident()
	assert.Equal(t, inc.NextQuestion(), inc.LastQuestion())

	inc.AppendHistory(session.RoleUser, "Outlook is not opening", false)
	inc.AppendHistory(session.RoleAssistant, "Which version of Outlook are you using?", true)
	inc.AppendHistory(session.RoleUser, "dunno what you mean really at all here", false)
	inc.AppendHistory(session.RoleAssistant, "I need specific information about: Outlook Version. Which version of Outlook are you using?", false)

	assert.Equal(t, "Which version of Outlook are you using?", inc.LastQuestion())
}

func TestClose(t *testing.T) {
	inc := outlookIncident()
	require.NoError(t, inc.Close(t0))
	assert.Equal(t, StatusClosed, inc.Status)
	require.NotNil(t, inc.ClosedOn)

	assert.ErrorIs(t, inc.Close(t0), ErrInvalidTransition)
}

func TestSetStatusKeepsCustomAdminMessage(t *testing.T) {
	inc := outlookIncident()
	require.NoError(t, inc.SetStatus(StatusResolved, t0))
	assert.Equal(t, DefaultAdminMessage(StatusResolved), inc.AdminMessage)
	require.NotNil(t, inc.ResolvedOn)

	inc.AdminMessage = "Reinstalled Office for you."
	require.NoError(t, inc.SetStatus(StatusClosed, t0))
	assert.Equal(t, "Reinstalled Office for you.", inc.AdminMessage)
	require.NotNil(t, inc.ClosedOn)

	assert.ErrorIs(t, inc.SetStatus("archived", t0), ErrInvalidTransition)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusOpen.Valid())
	assert.False(t, Status("bogus").Valid())
	assert.True(t, StatusResolved.Terminal())
	assert.False(t, StatusOpen.Terminal())

	s, err := ParseStatus("closed")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, s)
	_, err = ParseStatus("nope")
	assert.Error(t, err)
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator()
	g.now = func() time.Time { return t0 }

	first := g.Next()
	second := g.Next()
	assert.Equal(t, "INC20251022150744", first)
	assert.Equal(t, "INC20251022150745", second)

	g.Observe("INC20251022160000")
	assert.Equal(t, "INC20251022160001", g.Next())

	g.Observe("garbage")
	assert.Equal(t, "INC20251022160002", g.Next())
}

func TestSetStatusKeepsMissingInfoConsistent(t *testing.T) {
	inc := outlookIncident()
	assert.ErrorIs(t, inc.SetStatus(StatusOpen, t0), ErrInvalidTransition)
	assert.Equal(t, StatusPendingInfo, inc.Status)

	for _, answer := range []string{"Outlook 2019", "no error", "Windows 11"} {
		_, err := inc.Accept(answer, t0)
		require.NoError(t, err)
	}
	require.Equal(t, StatusOpen, inc.Status)
	assert.ErrorIs(t, inc.SetStatus(StatusPendingInfo, t0), ErrInvalidTransition)
	assert.Equal(t, StatusOpen, inc.Status)

	require.NoError(t, inc.SetStatus(StatusResolved, t0))
	require.NoError(t, inc.SetStatus(StatusOpen, t0))
	assert.Equal(t, StatusOpen, inc.Status)
}
