// Package kb holds the knowledge base of known issues: entries persisted
// in SQLite, mirrored to a plain-text file, and indexed for similarity
// lookup.
package kb

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned for an unknown KB id.
var ErrNotFound = errors.New("kb entry not found")

// Entry is a known issue and how to resolve it. Questions line up with
// RequiredInfo one-to-one.
type Entry struct {
	ID             string    `json:"kb_id"`
	Seq            int       `json:"-"`
	UseCase        string    `json:"use_case"`
	RequiredInfo   []string  `json:"required_info"`
	Questions      []string  `json:"questions"`
	SolutionSteps  string    `json:"solution_steps"`
	SourceIncident string    `json:"source_incident,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Candidate is an entry returned by a lookup, with its enhanced
// similarity to the query.
type Candidate struct {
	Entry
	Similarity float64 `json:"similarity"`
}

// Draft is a KB entry that hasn't been assigned an id yet.
type Draft struct {
	UseCase        string   `json:"use_case" validate:"required"`
	RequiredInfo   []string `json:"required_info"`
	Questions      []string `json:"questions"`
	SolutionSteps  string   `json:"solution_steps" validate:"required"`
	SourceIncident string   `json:"source_incident"`
}

// FormatID renders a sequence number as a KB id, zero-padded to three
// digits the way the KB file writes them.
func FormatID(seq int) string {
	return fmt.Sprintf("KB_%03d", seq)
}

// ParseSeq extracts the sequence number from "KB_7" or "KB_007".
func ParseSeq(id string) (int, bool) {
	num, ok := strings.CutPrefix(id, "KB_")
	if !ok || num == "" {
		return 0, false
	}
	n := 0
	for _, r := range num {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// GenerateQuestions builds one question per required field.
func GenerateQuestions(required []string) []string {
	out := make([]string, len(required))
	for i, f := range required {
		lower := strings.ToLower(f)
		switch {
		case strings.Contains(lower, "operating system"):
			out[i] = "What operating system are you using?"
		case strings.Contains(lower, "error message") || strings.Contains(lower, "error code"):
			out[i] = "Are you seeing any error messages? If yes, what does it say?"
		case strings.Contains(lower, "account type"):
			out[i] = "What type of account is this?"
		case strings.Contains(lower, "device"):
			out[i] = "What is your device name or ID?"
		default:
			out[i] = fmt.Sprintf("Can you please provide: %s?", f)
		}
	}
	return out
}
