package vectordb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/helpdesk/internal/embeddings"
)

const (
	collectionName = "knowledge_base"
	snapshotFile   = "kb_index.gob.gz"
	defaultLimit   = 5
)

// ChromemStore implements VectorStore with an in-process chromem-go
// collection. The embedder is only called for documents and queries, so a
// restored snapshot doesn't re-embed the KB.
type ChromemStore struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
}

// NewChromemStore creates an empty in-memory store.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddingFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &ChromemStore{db: db, collection: col, embed: ef}, nil
}

// embeddingFunc adapts a batch embedder to chromem's one-text-at-a-time
// signature.
func embeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("%s returned no embedding", e.Name())
		}
		return vecs[0], nil
	}
}

func (s *ChromemStore) col() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}
	return s.col().AddDocuments(ctx, chromDocs, min(runtime.NumCPU(), len(docs)))
}

func (s *ChromemStore) Get(ctx context.Context, id string) (Document, bool) {
	if id == "" {
		return Document{}, false
	}
	doc, err := s.col().GetByID(ctx, id)
	if err != nil {
		return Document{}, false
	}
	return Document{ID: doc.ID, Content: doc.Content, Metadata: mapToMetadata(doc.Metadata)}, true
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	col := s.col()
	if limit <= 0 {
		limit = defaultLimit
	}
	// chromem rejects nResults larger than the collection.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	limit = min(limit, count)

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying kb index: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.ExportToFile(filepath.Join(dir, snapshotFile), true, "")
}

func (s *ChromemStore) Load(_ context.Context, dir string) error {
	path := filepath.Join(dir, snapshotFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no kb index snapshot in %s: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("importing kb index: %w", err)
	}
	// Import replaces the collection; the embedding func isn't serialized.
	col := s.db.GetCollection(collectionName, s.embed)
	if col == nil {
		return fmt.Errorf("collection %q missing from snapshot", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.col().Count()
}

func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"kb_id":      m.KBID,
		"use_case":   m.UseCase,
		"source":     m.Source,
		"indexed_at": m.IndexedAt.Format(time.RFC3339),
	}
}

func mapToMetadata(m map[string]string) DocumentMetadata {
	indexedAt, _ := time.Parse(time.RFC3339, m["indexed_at"])
	return DocumentMetadata{
		KBID:      m["kb_id"],
		UseCase:   m["use_case"],
		Source:    m["source"],
		IndexedAt: indexedAt,
	}
}
