package vectordb

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/embeddings"
)

func kbDocs() []Document {
	now := time.Now().Truncate(time.Second)
	return []Document{
		{
			ID:      "KB_1",
			Content: "Outlook is not opening or crashes at startup",
			Metadata: DocumentMetadata{
				KBID: "KB_1", UseCase: "Outlook is not opening or crashes at startup", Source: "file", IndexedAt: now,
			},
		},
		{
			ID:      "KB_2",
			Content: "VPN is not connecting from home network",
			Metadata: DocumentMetadata{
				KBID: "KB_2", UseCase: "VPN is not connecting from home network", Source: "file", IndexedAt: now,
			},
		},
		{
			ID:      "KB_3",
			Content: "Password reset for domain account",
			Metadata: DocumentMetadata{
				KBID: "KB_3", UseCase: "Password reset for domain account", Source: "approval", IndexedAt: now,
			},
		},
	}
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(embeddings.NewLexicalEmbedder(256))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.AddDocuments(context.Background(), kbDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	return store
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	store := newTestStore(t)
	if count := store.Count(); count != 3 {
		t.Errorf("Count: got %d, want 3", count)
	}

	results, err := store.Search(context.Background(), "my outlook is not opening", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(results))
	}
	if results[0].Document.Metadata.KBID != "KB_1" {
		t.Errorf("best match = %s, want KB_1", results[0].Document.Metadata.KBID)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("results not sorted by similarity: %v", results)
	}
}

func TestChromemStore_SearchClampsLimit(t *testing.T) {
	store := newTestStore(t)
	results, err := store.Search(context.Background(), "vpn", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestChromemStore_SearchEmpty(t *testing.T) {
	store, err := NewChromemStore(embeddings.NewLexicalEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	results, err := store.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestChromemStore_AddReplacesSameID(t *testing.T) {
	store := newTestStore(t)
	doc := kbDocs()[1]
	doc.Content = "VPN drops every few minutes"
	doc.Metadata.UseCase = doc.Content
	if err := store.AddDocuments(context.Background(), []Document{doc}); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if count := store.Count(); count != 3 {
		t.Errorf("Count after re-add: got %d, want 3", count)
	}
	results, err := store.Search(context.Background(), "vpn drops", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Document.Metadata.UseCase != "VPN drops every few minutes" {
		t.Errorf("use case = %q, want the replacement", results[0].Document.Metadata.UseCase)
	}
}

func TestChromemStore_LoadMissingSnapshot(t *testing.T) {
	store, err := NewChromemStore(embeddings.NewLexicalEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	err = store.Load(context.Background(), t.TempDir())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load error = %v, want fs.ErrNotExist", err)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	dir := filepath.Join(t.TempDir(), "index")
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	store2, err := NewChromemStore(embeddings.NewLexicalEmbedder(256))
	if err != nil {
		t.Fatalf("NewChromemStore for load: %v", err)
	}
	if err := store2.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count := store2.Count(); count != 3 {
		t.Errorf("Count after load: got %d, want 3", count)
	}

	results, err := store2.Search(ctx, "password reset", 1)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	md := results[0].Document.Metadata
	if md.KBID != "KB_3" || md.Source != "approval" || md.IndexedAt.IsZero() {
		t.Errorf("metadata not preserved: %+v", md)
	}
}

func TestChromemStore_Get(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc, ok := store.Get(ctx, "KB_2")
	if !ok {
		t.Fatal("Get(KB_2): not found")
	}
	if doc.Content != "VPN is not connecting from home network" {
		t.Errorf("Content: got %q", doc.Content)
	}
	if doc.Metadata.KBID != "KB_2" || doc.Metadata.Source != "file" {
		t.Errorf("Metadata: got %+v", doc.Metadata)
	}

	for _, id := range []string{"KB_9", ""} {
		if _, ok := store.Get(ctx, id); ok {
			t.Errorf("Get(%q): found, want missing", id)
		}
	}
}
