// Package heuristics holds the deterministic text rules the assistant falls
// back on when no language model is available, and the answer-shape checks
// it always applies while collecting incident fields.
package heuristics

import (
	"regexp"
	"strings"
)

const (
	// MaxAnswerWords bounds an utterance that may be routed straight into
	// field collection without intent classification.
	MaxAnswerWords = 7
	// MaxGenericAnswerWords bounds an answer accepted for a field with no
	// recognizable category.
	MaxGenericAnswerWords = 5
	// sameIssueOverlap is the number of shared content words above which a
	// new description is considered the same issue as the current one.
	sameIssueOverlap = 2
)

// NoErrorValue is recorded for error fields when the user reports no error.
const NoErrorValue = "No error message"

var technicalPatterns = compileAll([]string{
	"not opening", "not working", "not connecting", "cannot access", "can't access",
	"unable to", "failed", "fails", "broken", "error", "issue with", "problem with",
	"trouble with", "outlook", "email", "vpn", "network", "wifi", "wi-fi", "software",
	"hardware", "install", "password", "reset", "login", "log in", "access",
	"connection", "performance", "slow", "crash", "freeze", "frozen", "hang",
	"unresponsive", "printer", "laptop", "teams",
})

var negativeErrorPatterns = compileWords([]string{
	"no error", "no errors", "none", "nothing", "not seeing", "don't see", "dont see",
	"no error message", "no message", "no code", "nope", "doesn't show", "didnt see",
	"didn't see",
})

// errorCodePattern matches what looks like an error code: a hex literal
// ("0x80070005") or a run of three or more digits ("404", "ORA-12154").
var errorCodePattern = regexp.MustCompile(`(?i)\b0x[0-9a-f]+\b|\d{3,}`)

var commandPhrases = compileWords([]string{
	"create incident", "create a incident", "create an incident", "track incident",
	"track a incident", "track an incident", "new incident", "close incident",
	"clear session", "view incomplete", "view previous", "hello", "hi", "hey",
	"good morning", "good afternoon", "good evening",
})

var greetingPatterns = compileWords([]string{
	"hi", "hello", "hey", "hiya", "good morning", "good afternoon", "good evening",
})

var goodbyePatterns = compileWords([]string{
	"bye", "goodbye", "good bye", "thanks", "thank you", "see you",
})

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "not": true, "is": true,
	"my": true, "a": true, "an": true, "it": true, "to": true, "of": true, "in": true,
	"on": true, "at": true, "i": true, "am": true, "are": true, "was": true,
	"this": true, "that": true, "can": true, "cannot": true, "can't": true,
	"all": true, "be": true, "have": true, "has": true, "me": true, "do": true,
}

var incidentIDPattern = regexp.MustCompile(`(?i)\bINC\d+`)

// compileAll builds prefix-anchored matchers: a pattern must start on a
// word boundary but may be followed by an inflection ("crash" matches
// "crashed").
func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p))
	}
	return out
}

// compileWords builds whole-word matchers, so "hi" doesn't match "this".
func compileWords(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return out
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WordCount returns the number of whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// IsTechnicalIssue reports whether text reads like a description of an IT
// problem.
func IsTechnicalIssue(text string) bool {
	return anyMatch(technicalPatterns, normalize(text))
}

// IsNegativeErrorAnswer reports whether text says there is no error
// message. That is a valid answer to an error field, not noise. Text that
// quotes an error code is never negative.
func IsNegativeErrorAnswer(text string) bool {
	t := normalize(text)
	return anyMatch(negativeErrorPatterns, t) && !errorCodePattern.MatchString(t)
}

// IsCommand reports whether text is an explicit assistant command or a
// greeting, which must never be taken as a field value.
func IsCommand(text string) bool {
	return anyMatch(commandPhrases, normalize(text))
}

// IsGreeting reports whether text is a greeting rather than a request.
func IsGreeting(text string) bool {
	t := normalize(text)
	return anyMatch(greetingPatterns, t) && !IsTechnicalIssue(t)
}

// IsGoodbye reports whether text closes the conversation politely.
func IsGoodbye(text string) bool {
	t := normalize(text)
	return anyMatch(goodbyePatterns, t) && !IsTechnicalIssue(t)
}

// ExtractIncidentID returns the first incident id in text, upper-cased,
// or "" if there is none.
func ExtractIncidentID(text string) string {
	return strings.ToUpper(incidentIDPattern.FindString(text))
}

// ContentWords returns the lower-cased words of text minus stop words and
// punctuation.
func ContentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(normalize(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) < 2 || stopWords[w] {
			continue
		}
		words[w] = true
	}
	return words
}

// IsDifferentIssue reports whether text describes something other than
// demand. Sharing more than two content words means it's the same issue.
func IsDifferentIssue(demand, text string) bool {
	if strings.TrimSpace(demand) == "" {
		return true
	}
	a, b := ContentWords(demand), ContentWords(text)
	shared := 0
	for w := range b {
		if a[w] {
			shared++
		}
	}
	return shared <= sameIssueOverlap
}
