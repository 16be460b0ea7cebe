package phrasing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/helpdesk/internal/llm"
	"github.com/ziadkadry99/helpdesk/internal/logging"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.reply}, nil
}

func TestEverySituationHasTemplate(t *testing.T) {
	all := []Situation{
		Greeting, FreshSession, Goodbye, GreetingContext, GreetingIdle, AskTrackID,
		AskIncidentType, AskPreviousID, AskIncompleteID, KeepOrIgnore, KeepOrIgnoreRetry,
		IncidentSelection, IncidentSelectionRetry, IncidentCompleted, IncidentClosed,
		NotTechnical, GeneralQuery, UnrelatedQuery, Error,
	}
	for _, s := range all {
		assert.NotEmpty(t, templates[s], s)
	}
}

func TestRender(t *testing.T) {
	got := Render(GreetingContext, Params{IncidentID: "INC20251022150744", Question: "What operating system are you using?"})
	assert.Equal(t, "Welcome back! Continuing with incident INC20251022150744.\n\nLet's continue: What operating system are you using?", got)

	got = Render(IncidentSelection, Params{
		IncidentList: "• INC1 - outlook\n• INC2 - vpn",
		ExampleID:    "INC1",
	})
	assert.Contains(t, got, "• INC1 - outlook\n• INC2 - vpn")
	assert.Contains(t, got, "(e.g., INC1)")

	assert.Equal(t, templates[Error], Render("nope", nil))
	assert.NotContains(t, Render(Greeting, nil), "{")
}

func TestTemplates(t *testing.T) {
	text, err := Templates{}.Phrase(context.Background(), IncidentClosed, Params{IncidentID: "INC9", UserDemand: "printer jam"})
	require.NoError(t, err)
	assert.Equal(t, `Incident INC9 regarding "printer jam" has been closed. Is there anything else I can help you with?`, text)
}

func TestLLMPhraser(t *testing.T) {
	ctx := context.Background()
	p := &stubProvider{reply: "  Hi there! Continuing INC5 for you. What operating system are you using?  "}
	ph := NewLLMPhraser(p, logging.Nop())

	params := Params{IncidentID: "INC5", Question: "What operating system are you using?"}
	text, err := ph.Phrase(ctx, GreetingContext, params)
	require.NoError(t, err)
	assert.Equal(t, "Hi there! Continuing INC5 for you. What operating system are you using?", text)

	// Rewrite that loses the question falls back to the template.
	p.reply = "Hi there! Continuing INC5 for you."
	text, err = ph.Phrase(ctx, GreetingContext, params)
	require.NoError(t, err)
	assert.Equal(t, Render(GreetingContext, params), text)

	p.err = errors.New("unavailable")
	text, err = ph.Phrase(ctx, Greeting, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Hello!"))
}

func TestLLMPhraserSkipsVerbatim(t *testing.T) {
	p := &stubProvider{reply: "something else"}
	ph := NewLLMPhraser(p, logging.Nop())

	text, err := ph.Phrase(context.Background(), IncidentSelection, Params{IncidentList: "• INC1 - x", ExampleID: "INC1"})
	require.NoError(t, err)
	assert.Contains(t, text, "• INC1 - x")
	assert.Zero(t, p.calls)
}
