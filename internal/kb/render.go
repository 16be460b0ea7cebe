package kb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderSolution converts solution steps to HTML for the admin views.
// Plain one-step-per-line text is shown as a bullet list; text that is
// already markdown (lists, fenced commands) is rendered as written.
func RenderSolution(steps string) (string, error) {
	src := steps
	if !looksLikeMarkdown(steps) {
		var sb strings.Builder
		for _, s := range splitSteps(steps) {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		src = sb.String()
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering solution: %w", err)
	}
	return buf.String(), nil
}

func looksLikeMarkdown(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "1.") || strings.HasPrefix(t, "* ") {
			return true
		}
	}
	return false
}
