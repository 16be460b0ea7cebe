package kb

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The KB text file is a list of blocks separated by lines of 40 or more
// dashes:
//
//	[KB_ID: 1]
//	Use Case: Outlook Not Opening
//	Required Info:
//	- Operating System (Windows/Mac/Linux)
//	- Error Message (if any)
//	Solution Steps:
//	- Verify internet connectivity.
//	--------------------------------------------------
//
// Parenthesized hints in required info are dropped on parse.

const separatorWidth = 50

var (
	separatorRe = regexp.MustCompile(`(?m)^\s*-{40,}\s*$`)
	kbIDRe      = regexp.MustCompile(`\[KB_ID:\s*(\d+)\]`)
	hintRe      = regexp.MustCompile(`\s*\([^)]*\)`)
)

const (
	headerTitle   = "# Knowledge Base Entries"
	headerUpdated = "# Last Updated:"
	headerTotal   = "# Total Entries:"
)

// Parse reads KB entries from r. Blocks without an id or use case are
// skipped.
func Parse(r io.Reader) ([]Entry, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading kb file: %w", err)
	}

	var entries []Entry
	for _, block := range separatorRe.Split(string(content), -1) {
		if e, ok := parseBlock(block); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// ParseFile parses the KB file at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseBlock(block string) (Entry, bool) {
	var (
		e       Entry
		section string
		steps   []string
	)
	sc := bufio.NewScanner(strings.NewReader(block))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "[KB_ID:"):
			if m := kbIDRe.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				e.ID = FormatID(n)
			}
		case strings.HasPrefix(line, "Use Case:"):
			e.UseCase = strings.TrimSpace(strings.TrimPrefix(line, "Use Case:"))
			section = ""
		case strings.HasPrefix(line, "Required Info:"):
			section = "required"
		case strings.HasPrefix(line, "Solution Steps:"):
			section = "solution"
		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(line[1:])
			switch section {
			case "required":
				if field := strings.TrimSpace(hintRe.ReplaceAllString(item, "")); field != "" {
					e.RequiredInfo = append(e.RequiredInfo, field)
				}
			case "solution":
				steps = append(steps, item)
			}
		}
	}

	if e.ID == "" || e.UseCase == "" {
		return Entry{}, false
	}
	if e.RequiredInfo == nil {
		e.RequiredInfo = []string{}
	}
	e.Questions = make([]string, len(e.RequiredInfo))
	for i, f := range e.RequiredInfo {
		e.Questions[i] = fmt.Sprintf("Can you please provide: %s?", f)
	}
	e.SolutionSteps = strings.Join(steps, "\n")
	e.Seq, _ = ParseSeq(e.ID)
	return e, true
}

// FormatEntry renders one entry block, separator included.
func FormatEntry(e Entry) string {
	var sb strings.Builder
	seq, ok := ParseSeq(e.ID)
	if !ok {
		seq = e.Seq
	}
	fmt.Fprintf(&sb, "[KB_ID: %d]\n\n", seq)
	fmt.Fprintf(&sb, "Use Case: %s\n\n", e.UseCase)
	if len(e.RequiredInfo) > 0 {
		sb.WriteString("Required Info:\n")
		for _, f := range e.RequiredInfo {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Solution Steps:\n")
	for _, step := range splitSteps(e.SolutionSteps) {
		fmt.Fprintf(&sb, "- %s\n", step)
	}
	sb.WriteString(strings.Repeat("-", separatorWidth))
	sb.WriteString("\n")
	return sb.String()
}

// splitSteps turns free-form solution text into bullet items.
func splitSteps(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// WriteFile replaces the file at path with the given entries.
func WriteFile(path string, entries []Entry) error {
	var buf bytes.Buffer
	writeHeader(&buf, len(entries))
	for _, e := range entries {
		buf.WriteString(FormatEntry(e))
		buf.WriteString("\n")
	}
	return writeAtomic(path, buf.Bytes())
}

// AppendFile adds an entry to the end of the file at path, creating it if
// needed, and refreshes the header counters.
func AppendFile(path string, e Entry) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading kb file: %w", err)
	}

	body := stripHeader(string(existing))
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	body += "\n" + FormatEntry(e)

	var buf bytes.Buffer
	writeHeader(&buf, strings.Count(body, "[KB_ID:"))
	buf.WriteString(body)
	return writeAtomic(path, buf.Bytes())
}

func writeHeader(w io.Writer, total int) {
	fmt.Fprintln(w, headerTitle)
	fmt.Fprintf(w, "%s %s\n", headerUpdated, time.Now().Format(time.DateTime))
	fmt.Fprintf(w, "%s %d\n\n", headerTotal, total)
}

func stripHeader(content string) string {
	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if l == headerTitle || strings.HasPrefix(l, headerUpdated) || strings.HasPrefix(l, headerTotal) {
			i++
			continue
		}
		break
	}
	return strings.TrimLeft(strings.Join(lines[i:], "\n"), "\n")
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating kb directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing kb file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing kb file: %w", err)
	}
	return nil
}
