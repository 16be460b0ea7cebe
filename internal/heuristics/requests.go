package heuristics

// Phrase sets for explicit requests. They are matched on word boundaries
// against the lower-cased utterance.
var (
	incompletePhrases = compileAll([]string{
		"incomplete", "unfinished", "continue my incident", "continue my ticket",
		"resume my incident",
	})
	trackPhrases = compileAll([]string{
		"track", "check incident", "check my incident", "check status", "status",
		"view incident", "my incident",
	})
	closePhrases = compileAll([]string{
		"close incident", "close this incident", "close the incident", "close my incident",
		"close ticket", "complete incident", "end incident", "mark as closed",
	})
	clearPhrases = compileAll([]string{
		"clear session", "clear the session", "clear chat", "clear conversation",
		"end session", "start fresh", "start over", "reset session", "reset chat",
		"new session",
	})
	previousPhrases = compileAll([]string{
		"previous solution", "previous incident", "old incident", "past incident",
		"earlier incident", "view previous", "view solution", "last incident",
	})
	createPhrases = compileAll([]string{
		"create", "new incident", "new ticket", "report", "raise", "open a ticket",
		"log a ticket", "log an incident",
	})
	createFiller = compileWords([]string{
		"i", "want", "would", "like", "to", "please", "can", "you", "create", "a", "an",
		"new", "incident", "ticket", "report", "raise", "open", "log", "for", "my", "issue",
		"problem", "about", "the",
	})
)

func IsIncompleteRequest(text string) bool { return anyMatch(incompletePhrases, normalize(text)) }
func IsTrackRequest(text string) bool      { return anyMatch(trackPhrases, normalize(text)) }
func IsCloseRequest(text string) bool      { return anyMatch(closePhrases, normalize(text)) }
func IsClearRequest(text string) bool      { return anyMatch(clearPhrases, normalize(text)) }
func IsPreviousRequest(text string) bool   { return anyMatch(previousPhrases, normalize(text)) }
func IsCreateRequest(text string) bool     { return anyMatch(createPhrases, normalize(text)) }

// IsControlRequest reports whether text asks the assistant to do something
// with incidents or the session rather than describing a problem.
func IsControlRequest(text string) bool {
	return IsCommand(text) || IsClearRequest(text) || IsCloseRequest(text) ||
		IsIncompleteRequest(text) || IsPreviousRequest(text)
}

// DescribesIssue reports whether a create request also carries a problem
// description ("create incident for outlook not opening") as opposed to
// being a bare request ("I want to create a new incident").
func DescribesIssue(text string) bool {
	rest := normalize(text)
	for _, re := range createFiller {
		rest = re.ReplaceAllString(rest, " ")
	}
	if WordCount(rest) == 0 {
		return false
	}
	return IsTechnicalIssue(rest) || WordCount(rest) >= 2
}
