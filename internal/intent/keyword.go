package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/ziadkadry99/helpdesk/internal/heuristics"
	"github.com/ziadkadry99/helpdesk/internal/session"
)

// Fallback classifies an utterance with the keyword rules alone. It is
// used when no model is configured and whenever the model fails.
func Fallback(req Request) Result {
	text := req.Utterance
	id := heuristics.ExtractIncidentID(text)

	switch {
	case heuristics.IsGoodbye(text):
		return Result{Intent: Greeting, Confidence: 0.9}
	case heuristics.IsGreeting(text):
		if req.HasActiveIncident {
			return Result{Intent: GreetingContext, Confidence: 0.9}
		}
		return Result{Intent: Greeting, Confidence: 0.9}
	case heuristics.IsIncompleteRequest(text):
		return Result{Intent: AskIncompleteIncident, Confidence: 0.9}
	case heuristics.IsCloseRequest(text):
		return Result{Intent: CloseIncident, Confidence: 0.8}
	case heuristics.IsClearRequest(text):
		return Result{Intent: ClearSession, Confidence: 0.8}
	case heuristics.IsPreviousRequest(text):
		return Result{Intent: AskPreviousSolution, Confidence: 0.8}
	case heuristics.IsTrackRequest(text):
		return Result{Intent: TrackIncident, Confidence: 0.8, IncidentID: id}
	case heuristics.IsCreateRequest(text):
		if heuristics.DescribesIssue(text) {
			return Result{Intent: NewIncident, Confidence: 0.8}
		}
		return Result{Intent: AskIncidentType, Confidence: 0.8}
	case id != "":
		return Result{Intent: ProvideIncidentID, Confidence: 0.9, IncidentID: id}
	case req.HasActiveIncident:
		return Result{Intent: ContinueIncident, Confidence: 0.6}
	default:
		return Result{Intent: NewIncident, Confidence: 0.6}
	}
}

// KeywordClassifier is a Classifier backed by Fallback.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, req Request) (Result, error) {
	return Fallback(req), nil
}

// Field sets for the categories the keyword analyzer recognizes. The
// first matching category wins.
var categories = []struct {
	name   string
	re     *regexp.Regexp
	fields []string
}{
	{"vpn", anyWord("vpn"), []string{"Operating System", "VPN Client", "Network Type", "Error Message"}},
	{"email", anyWord("outlook", "email", "e-mail", "mailbox"), []string{"Operating System", "Account Type", "Error Message"}},
	{"access", anyWord("password", "login", "log in", "locked", "access"), []string{"Email or User ID", "Error Message"}},
	{"network", anyWord("wifi", "wi-fi", "network", "internet", "connection"), []string{"Operating System", "Network Type", "Error Message"}},
	{"printer", anyWord("printer", "printing", "print"), []string{"Printer Model", "Error Message"}},
	{"software", anyWord("install", "installing", "software", "application", "app", "teams", "update"), []string{"Operating System", "Application Name", "Error Message"}},
}

func anyWord(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var defaultFields = []string{"Operating System", "Device Name", "Error Message"}

// KeywordAnalyzer treats anything the technical-issue keywords match as
// an incident and picks required fields by category.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Analyze(_ context.Context, query string, _ []session.Turn) (Analysis, error) {
	if !heuristics.IsTechnicalIssue(query) {
		return Analysis{Reasoning: "no technical keywords"}, nil
	}
	text := strings.ToLower(query)
	for _, c := range categories {
		if c.re.MatchString(text) {
			return Analysis{
				IsTechnical:  true,
				Category:     c.name,
				RequiredInfo: append([]string(nil), c.fields...),
				Reasoning:    "matched " + c.name + " keywords",
			}, nil
		}
	}
	return Analysis{
		IsTechnical:  true,
		Category:     "general",
		RequiredInfo: append([]string(nil), defaultFields...),
		Reasoning:    "technical keywords without a known category",
	}, nil
}

