// Package vectordb holds the embeddings of KB use cases and ranks them
// against a user's problem description.
package vectordb

import (
	"context"
	"time"
)

// VectorStore stores KB documents by embedding.
type VectorStore interface {
	// AddDocuments adds documents, replacing any with the same id.
	AddDocuments(ctx context.Context, docs []Document) error

	// Get returns the document stored under id, if any.
	Get(ctx context.Context, id string) (Document, bool)

	// Search returns up to limit documents, most similar first.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Persist writes a snapshot under dir; Load restores it. Load returns
	// an error wrapping fs.ErrNotExist when there is no snapshot.
	Persist(ctx context.Context, dir string) error
	Load(ctx context.Context, dir string) error

	Count() int
}

// Document is one indexed KB entry. Content is the text that gets
// embedded, normally the entry's use case.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata is stored next to the vector so search results can be
// mapped back to KB entries without another lookup.
type DocumentMetadata struct {
	KBID      string
	UseCase   string
	Source    string // "file", "approval" or "admin"
	IndexedAt time.Time
}

// SearchResult pairs a document with its cosine similarity to the query.
type SearchResult struct {
	Document   Document
	Similarity float32
}
