package heuristics

import (
	"regexp"
	"strings"
)

// FieldKind is the answer category inferred from a field name.
type FieldKind int

const (
	FieldGeneric FieldKind = iota
	FieldError
	FieldOS
	FieldVPNClient
	FieldNetwork
	FieldAccount
	FieldIdentity
)

var osWord = regexp.MustCompile(`\bos\b`)

var fieldVocab = map[FieldKind][]string{
	FieldOS:        {"windows", "mac", "linux", "macos", "ubuntu", "ios", "android"},
	FieldVPNClient: {"cisco", "anyconnect", "globalprotect", "forticlient", "pulse"},
	FieldNetwork:   {"home", "office", "public", "wifi", "wi-fi", "ethernet"},
	FieldAccount:   {"office365", "office 365", "exchange", "imap", "gmail", "outlook"},
}

// errorAnswerWords mark an utterance as talking about an error at all.
var errorAnswerWords = compileWords([]string{"error", "errors", "code", "message", "no", "none"})

// KindOf classifies a field name such as "Operating System" or
// "Error Message".
func KindOf(field string) FieldKind {
	f := normalize(field)
	switch {
	case strings.Contains(f, "error"):
		return FieldError
	case strings.Contains(f, "operating system") || osWord.MatchString(f):
		return FieldOS
	case strings.Contains(f, "vpn") && strings.Contains(f, "client"):
		return FieldVPNClient
	case strings.Contains(f, "network"):
		return FieldNetwork
	case strings.Contains(f, "account"):
		return FieldAccount
	case strings.Contains(f, "email") || strings.Contains(f, "user id") || strings.Contains(f, "username"):
		return FieldIdentity
	default:
		return FieldGeneric
	}
}

// AcceptAnswer decides whether answer is an acceptable value for field and
// returns the value to record. Negative answers to error fields are
// recorded as NoErrorValue.
func AcceptAnswer(field, answer string) (string, bool) {
	value := strings.TrimSpace(answer)
	text := normalize(answer)
	if text == "" {
		return "", false
	}

	switch kind := KindOf(field); kind {
	case FieldError:
		if IsNegativeErrorAnswer(text) {
			return NoErrorValue, true
		}
		return value, len(value) > 5
	case FieldOS, FieldVPNClient, FieldNetwork, FieldAccount:
		return value, containsAny(text, fieldVocab[kind])
	case FieldIdentity:
		return value, strings.Contains(value, "@") || len(value) > 3
	default:
		return value, isShortAnswer(value)
	}
}

// ExpectedAnswer is the stricter shape check used for routing: it reports
// whether text looks like the kind of answer field asks for, as opposed
// to merely being acceptable once the user is known to be answering.
func ExpectedAnswer(field, text string) bool {
	t := normalize(text)
	if t == "" || field == "" {
		return false
	}
	switch kind := KindOf(field); kind {
	case FieldError:
		return IsNegativeErrorAnswer(t) || anyMatch(errorAnswerWords, t)
	case FieldOS, FieldVPNClient, FieldNetwork, FieldAccount:
		return containsAny(t, fieldVocab[kind])
	case FieldIdentity:
		return strings.Contains(t, "@") || (WordCount(t) <= 2 && len(t) > 3)
	default:
		return isShortAnswer(t)
	}
}

// LooksLikeAnswer reports whether text should go straight to field
// collection for field: short, shaped like the expected answer, and not a
// request the assistant has to act on.
func LooksLikeAnswer(field, text string) bool {
	if WordCount(text) > MaxAnswerWords || IsRequest(text) {
		return false
	}
	return ExpectedAnswer(field, text)
}

// IsRequest reports whether text asks for something (a command, a
// session or incident action, a goodbye, or anything naming an incident
// id) instead of supplying information.
func IsRequest(text string) bool {
	return IsControlRequest(text) || IsGoodbye(text) || IsTrackRequest(text) ||
		IsCreateRequest(text) || ExtractIncidentID(text) != ""
}

func isShortAnswer(s string) bool {
	return WordCount(s) <= MaxGenericAnswerWords && len(strings.TrimSpace(s)) > 1
}
