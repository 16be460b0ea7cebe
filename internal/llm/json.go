package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON trims model output down to the outermost JSON object. Models
// often wrap JSON in prose or code fences even in JSON mode.
func ExtractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return content[start : end+1], nil
}

// CompleteJSON runs a JSON-mode completion and decodes the reply into out.
func CompleteJSON(ctx context.Context, p Provider, system, user string, out any) error {
	resp, err := p.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return err
	}
	raw, err := ExtractJSON(resp.Content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}
