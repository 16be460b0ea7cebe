// Package embeddings turns KB use cases and user problem descriptions into
// vectors. OpenAI and Ollama back it when an embedding provider is set;
// LexicalEmbedder covers offline deployments.
package embeddings

import "context"

// Embedder embeds texts in one batch. Every returned vector has
// Dimensions() entries and the same order as texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the provider and model, e.g. "openai/text-embedding-3-small".
	Name() string
}
