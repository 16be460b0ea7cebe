package kb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/vectordb"
)

const (
	defaultSearchLimit = 5
	keywordBonus       = 0.3
	thresholdSlack     = 0.1
	thresholdFloor     = 0.25
)

// Index answers "which known issue is this?" by combining vector
// similarity over use cases with a keyword-overlap bonus.
type Index struct {
	vectors   vectordb.VectorStore
	store     *Store
	threshold float64
}

// NewIndex creates an index over the given vector store. Entry details
// are read from store.
func NewIndex(vectors vectordb.VectorStore, store *Store, threshold float64) *Index {
	return &Index{vectors: vectors, store: store, threshold: threshold}
}

// EffectiveThreshold is the score a best match needs: the configured
// threshold relaxed by 0.1, but never below 0.25.
func EffectiveThreshold(threshold float64) float64 {
	return max(thresholdFloor, threshold-thresholdSlack)
}

// EnhancedSimilarity adds 0.3 x the Jaccard overlap between the words of
// the use case and the query to the vector similarity, capped at 1.
func EnhancedSimilarity(similarity float64, useCase, query string) float64 {
	a := wordSet(useCase)
	b := wordSet(query)
	union := len(a)
	shared := 0
	for w := range b {
		if a[w] {
			shared++
		} else {
			union++
		}
	}
	var jaccard float64
	if union > 0 {
		jaccard = float64(shared) / float64(union)
	}
	return min(similarity+jaccard*keywordBonus, 1)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = true
	}
	return out
}

// Add indexes entries under their ids; re-adding an id replaces it.
func (ix *Index) Add(ctx context.Context, source string, entries ...Entry) error {
	docs := make([]vectordb.Document, 0, len(entries))
	now := time.Now().UTC()
	for _, e := range entries {
		docs = append(docs, vectordb.Document{
			ID:      e.ID,
			Content: e.UseCase,
			Metadata: vectordb.DocumentMetadata{
				KBID:      e.ID,
				UseCase:   e.UseCase,
				Source:    source,
				IndexedAt: now,
			},
		})
	}
	if err := ix.vectors.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("indexing kb entries: %w", err)
	}
	return nil
}

// Indexed reports whether e is already indexed under its id with the same
// use case, in which case re-adding it would only repeat the embedding.
func (ix *Index) Indexed(ctx context.Context, e Entry) bool {
	doc, ok := ix.vectors.Get(ctx, e.ID)
	return ok && doc.Content == e.UseCase
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	return ix.vectors.Count()
}

// Search returns up to limit candidates ranked by enhanced similarity.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := ix.vectors.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching kb index: %w", err)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		e, err := ix.store.Get(ctx, r.Document.Metadata.KBID)
		if err != nil {
			return nil, err
		}
		if e == nil {
			// Indexed but no longer stored.
			continue
		}
		out = append(out, Candidate{
			Entry:      *e,
			Similarity: EnhancedSimilarity(float64(r.Similarity), e.UseCase, query),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// BestMatch returns the top candidate if it clears the effective
// threshold, or nil.
func (ix *Index) BestMatch(ctx context.Context, query string) (*Candidate, error) {
	candidates, err := ix.Search(ctx, query, defaultSearchLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || candidates[0].Similarity < EffectiveThreshold(ix.threshold) {
		return nil, nil
	}
	return &candidates[0], nil
}
