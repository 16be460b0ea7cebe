package phrasing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/llm"
	"github.com/ziadkadry99/helpdesk/internal/logging"
)

const rewriteSystemPrompt = `You reword replies for a friendly, professional IT helpdesk assistant.
Rewrite the draft in your own words, at most three sentences longer than the draft.
Keep every incident id, every list line and every question exactly as written.
Never promise a solution and never close or create anything that the draft doesn't mention.
Reply with the message text only, no JSON and no quotes.`

// Situations whose text is already exact content (lists, error notices);
// these are never sent to the model.
var verbatim = map[Situation]bool{
	IncidentSelection:      true,
	IncidentSelectionRetry: true,
	KeepOrIgnoreRetry:      true,
	Error:                  true,
}

// Params whose values must survive rewording.
var keepKeys = []string{IncidentID, Question, IncidentList, ExampleID}

// LLMPhraser rewords templates with a model. Any failure, or a rewrite
// that drops an id or question, yields the template text.
type LLMPhraser struct {
	provider llm.Provider
	log      *logging.Logger
}

func NewLLMPhraser(p llm.Provider, logger *logging.Logger) *LLMPhraser {
	return &LLMPhraser{provider: p, log: logger.Sub("phrasing")}
}

func (l *LLMPhraser) Phrase(ctx context.Context, s Situation, p Params) (string, error) {
	draft := Render(s, p)
	if verbatim[s] {
		return draft, nil
	}

	resp, err := l.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: rewriteSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Situation: %s\n\nDraft:\n%s", s, draft)},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		l.log.Warn().Err(err).Str("situation", string(s)).Msg("rewording reply, using template")
		return draft, nil
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" || !keepsParams(text, p) {
		l.log.Debug().Str("situation", string(s)).Msg("rewrite dropped required content, using template")
		return draft, nil
	}
	return text, nil
}

func keepsParams(text string, p Params) bool {
	for _, k := range keepKeys {
		if v := p[k]; v != "" && !strings.Contains(text, v) {
			return false
		}
	}
	return true
}
