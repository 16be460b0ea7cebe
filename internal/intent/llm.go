package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/llm"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

const classifySystemPrompt = `You classify messages sent to an IT helpdesk assistant.
Reply with one JSON object and nothing else:
{"intent": "LABEL", "confidence": 0.0-1.0, "extracted_incident_id": "INC... or empty", "reasoning": "short explanation"}

Labels:
- GREETING: hello, hi, good morning; also bye, goodbye, thanks (never closes anything)
- GREETING_CONTEXT: a greeting while the user has an active incident
- UNRELATED_QUERY: off-topic chatter while an incident is being worked on
- CLEAR_SESSION: clear the session, start fresh, start over
- TRACK_INCIDENT: wants the status of an incident
- ASK_INCIDENT_TYPE: wants to create an incident but has not said what is wrong ("create a new incident", "I want to report an issue")
- ASK_INCOMPLETE_INCIDENT: wants to continue an incomplete incident ("view incomplete incident", "continue my incident")
- PROVIDE_INCIDENT_ID: gives an incident id such as INC20251022150744
- CLOSE_INCIDENT: explicitly asks to close the incident ("close incident", "mark as closed")
- ASK_PREVIOUS_SOLUTION: wants to see the solution of a previous incident
- NEW_INCIDENT: describes an actual technical problem ("outlook is not opening", "create incident for VPN issue")
- CONTINUE_INCIDENT: answers the question the assistant just asked (short answers, single words)
- GENERAL_QUERY: anything else

When the user has an active incident and gives a short answer, prefer CONTINUE_INCIDENT.`

const classifyUserPrompt = `Message: %s

Recent conversation:
%s

Has active incident: %t`

const analyzeSystemPrompt = `You decide whether a message describes an IT support problem that needs an incident ticket.
Problems: software faults, access requests, installation needs, errors, connectivity, performance.
Not problems: general knowledge questions and definitions ("what is a VPN", "how do passwords work").
Reply with one JSON object and nothing else:
{"is_technical_issue": true|false, "category": "name or empty", "required_info": ["field", ...], "clarifying_questions": ["one question per field", ...], "reasoning": "short explanation"}
Keep required_info to at most four short field names such as "Operating System" or "Error Message".`

const analyzeUserPrompt = `Message: %s

Recent conversation:
%s`

// formatContext renders the last n turns as "role: content" lines.
func formatContext(turns []session.Turn, n int) string {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var sb strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
	}
	if sb.Len() == 0 {
		return "(none)"
	}
	return sb.String()
}

// LLMClassifier asks a model for the intent. Output that doesn't name a
// known intent is an error, so callers fall back to the keyword rules.
type LLMClassifier struct {
	provider llm.Provider
}

func NewLLMClassifier(p llm.Provider) *LLMClassifier {
	return &LLMClassifier{provider: p}
}

func (c *LLMClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	var raw struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		IncidentID string  `json:"extracted_incident_id"`
		Reasoning  string  `json:"reasoning"`
	}
	user := fmt.Sprintf(classifyUserPrompt, req.Utterance, formatContext(req.Context, session.MaxContext), req.HasActiveIncident)
	if err := llm.CompleteJSON(ctx, c.provider, classifySystemPrompt, user, &raw); err != nil {
		return Result{}, fmt.Errorf("classifying intent: %w", err)
	}
	in, ok := Parse(raw.Intent)
	if !ok {
		return Result{}, fmt.Errorf("classifying intent: unknown label %q", raw.Intent)
	}

	// Trust the id only if it is actually in the message.
	id := heuristics.ExtractIncidentID(req.Utterance)
	if in == ProvideIncidentID && id == "" {
		return Result{}, fmt.Errorf("classifying intent: %s without an incident id", in)
	}
	return Result{
		Intent:     in,
		Confidence: min(max(raw.Confidence, 0), 1),
		IncidentID: id,
		Reasoning:  raw.Reasoning,
	}, nil
}

// LLMAnalyzer asks a model whether an unmatched description is an IT
// problem and what to collect for it.
type LLMAnalyzer struct {
	provider llm.Provider
}

func NewLLMAnalyzer(p llm.Provider) *LLMAnalyzer {
	return &LLMAnalyzer{provider: p}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, query string, history []session.Turn) (Analysis, error) {
	var out Analysis
	user := fmt.Sprintf(analyzeUserPrompt, query, formatContext(history, 5))
	if err := llm.CompleteJSON(ctx, a.provider, analyzeSystemPrompt, user, &out); err != nil {
		return Analysis{}, fmt.Errorf("analyzing issue: %w", err)
	}
	out.RequiredInfo = compact(out.RequiredInfo)
	out.Questions = compact(out.Questions)
	if !out.IsTechnical {
		out.RequiredInfo, out.Questions = nil, nil
	}
	return out, nil
}

func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
