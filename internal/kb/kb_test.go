package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/helpdesk/internal/db"
	"github.com/ziadkadry99/helpdesk/internal/embeddings"
	"github.com/ziadkadry99/helpdesk/internal/logging"
	"github.com/ziadkadry99/helpdesk/internal/progress"
	"github.com/ziadkadry99/helpdesk/internal/vectordb"
)

const sampleFile = `# Knowledge Base Entries
# Last Updated: 2025-10-20 10:00:00
# Total Entries: 2

--------------------------------------------------
[KB_ID: 1]
Use Case: Outlook Not Opening

Required Info:
  - Operating System (Windows/Mac/Linux)
  - Account Type (Office365/Exchange/IMAP)
  - Error Message (if any)
Solution Steps:
  - Verify internet connectivity.
  - Check Outlook version and apply latest updates.
--------------------------------------------------
[KB_ID: 2]
Use Case: VPN not connecting
Required Info:
- VPN Client
- Network Type (home/office/public)
Solution Steps:
- Restart the VPN client.
--------------------------------------------------
Use Case: entry without an id is skipped
--------------------------------------------------
`

func newService(t *testing.T, filePath string) *Service {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	vectors, err := vectordb.NewChromemStore(embeddings.NewLexicalEmbedder(256))
	require.NoError(t, err)

	store := NewStore(database)
	return NewService(store, NewIndex(vectors, store, 0.35), filePath, logging.Nop())
}

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleFile))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	want := Entry{
		ID:           "KB_001",
		Seq:          1,
		UseCase:      "Outlook Not Opening",
		RequiredInfo: []string{"Operating System", "Account Type", "Error Message"},
		Questions: []string{
			"Can you please provide: Operating System?",
			"Can you please provide: Account Type?",
			"Can you please provide: Error Message?",
		},
		SolutionSteps: "Verify internet connectivity.\nCheck Outlook version and apply latest updates.",
	}
	if diff := cmp.Diff(want, entries[0]); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "KB_002", entries[1].ID)
	assert.Equal(t, []string{"VPN Client", "Network Type"}, entries[1].RequiredInfo)
}

func TestFormatEntryRoundTrip(t *testing.T) {
	e := Entry{
		ID:            "KB_7",
		UseCase:       "Printer offline",
		RequiredInfo:  []string{"Printer Model"},
		SolutionSteps: "Power cycle the printer\n- Re-add it in settings",
	}
	text := FormatEntry(e)
	assert.Contains(t, text, "[KB_ID: 7]")
	assert.Contains(t, text, "- Re-add it in settings\n")

	parsed, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "KB_007", parsed[0].ID)
	assert.Equal(t, "Power cycle the printer\nRe-add it in settings", parsed[0].SolutionSteps)
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb", "entries.txt")

	require.NoError(t, AppendFile(path, Entry{ID: "KB_1", UseCase: "first", RequiredInfo: []string{"A"}, SolutionSteps: "x"}))
	require.NoError(t, AppendFile(path, Entry{ID: "KB_2", UseCase: "second", SolutionSteps: "y"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	assert.Equal(t, 1, strings.Count(content, headerTitle))
	assert.Contains(t, content, "# Total Entries: 2")

	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[1].UseCase)
	assert.Empty(t, entries[1].RequiredInfo)
}

func TestStoreAddAllocatesNextID(t *testing.T) {
	svc := newService(t, "")
	ctx := context.Background()

	entries, err := Parse(strings.NewReader(sampleFile))
	require.NoError(t, err)
	_, err = svc.Load(ctx, entries, progress.Nop{})
	require.NoError(t, err)

	e, err := svc.store.Add(ctx, Draft{
		UseCase:       "Teams keeps crashing",
		RequiredInfo:  []string{"Operating System", "Teams Version"},
		SolutionSteps: "Clear the Teams cache",
	})
	require.NoError(t, err)
	assert.Equal(t, "KB_003", e.ID)
	assert.Equal(t, 3, e.Seq)
	assert.Equal(t, []string{"What operating system are you using?", "Can you please provide: Teams Version?"}, e.Questions)

	e2, err := svc.store.Add(ctx, Draft{UseCase: "another", SolutionSteps: "s"})
	require.NoError(t, err)
	assert.Equal(t, "KB_004", e2.ID)

	got, err := svc.Get(ctx, "KB_003")
	require.NoError(t, err)
	assert.Equal(t, "Teams keeps crashing", got.UseCase)

	_, err = svc.Get(ctx, "KB_99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIDsArePaddedEverywhere(t *testing.T) {
	svc := newService(t, "")
	ctx := context.Background()

	id, err := svc.store.Upsert(ctx, Entry{ID: "KB_1", UseCase: "old", RequiredInfo: []string{}, Questions: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "KB_001", id)

	id, err = svc.store.Upsert(ctx, Entry{ID: "KB_001", UseCase: "new", RequiredInfo: []string{}, Questions: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "KB_001", id)

	added, err := svc.store.Add(ctx, Draft{UseCase: "added", SolutionSteps: "a"})
	require.NoError(t, err)
	assert.Equal(t, "KB_002", added.ID)

	n, err := svc.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, id := range []string{"KB_1", "KB_001"} {
		got, err := svc.store.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got, id)
		assert.Equal(t, "KB_001", got.ID)
		assert.Equal(t, "new", got.UseCase)
	}
	missing, err := svc.store.Get(ctx, "not-an-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnhancedSimilarity(t *testing.T) {
	// use case {outlook, not, opening}, query {outlook, not, opening, today}
	got := EnhancedSimilarity(0.5, "Outlook not opening", "outlook not opening today")
	assert.InDelta(t, 0.5+0.75*0.3, got, 1e-9)
	assert.Equal(t, 1.0, EnhancedSimilarity(0.95, "a b", "a b"))
	assert.Equal(t, 0.4, EnhancedSimilarity(0.4, "", ""))
}

func TestEffectiveThreshold(t *testing.T) {
	assert.InDelta(t, 0.25, EffectiveThreshold(0.35), 1e-9)
	assert.InDelta(t, 0.5, EffectiveThreshold(0.6), 1e-9)
	assert.InDelta(t, 0.25, EffectiveThreshold(0.1), 1e-9)
}

func TestBestMatch(t *testing.T) {
	svc := newService(t, "")
	ctx := context.Background()
	entries, _ := Parse(strings.NewReader(sampleFile))
	_, err := svc.Load(ctx, entries, progress.Nop{})
	require.NoError(t, err)

	best, err := svc.Index().BestMatch(ctx, "Outlook is not opening")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "KB_001", best.ID)
	assert.Len(t, best.Questions, 3)

	none, err := svc.Index().BestMatch(ctx, "where is the cafeteria")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRegisterAppendsAndIndexes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))

	svc := newService(t, path)
	ctx := context.Background()
	n, err := svc.LoadFile(ctx, progress.Nop{})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	e, err := svc.Register(ctx, Draft{
		UseCase:        "Printer shows offline",
		RequiredInfo:   []string{"Printer Model"},
		SolutionSteps:  "Restart the print spooler",
		SourceIncident: "INC20251022150744",
	}, SourceApproval)
	require.NoError(t, err)
	assert.Equal(t, "KB_003", e.ID)
	assert.Equal(t, 3, svc.Index().Size())

	fromFile, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, fromFile, 3)
	assert.Equal(t, "Printer shows offline", fromFile[2].UseCase)

	best, err := svc.Index().BestMatch(ctx, "printer shows offline")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, "KB_003", best.ID)
}

func TestLoadFileMissing(t *testing.T) {
	svc := newService(t, filepath.Join(t.TempDir(), "missing.txt"))
	n, err := svc.LoadFile(context.Background(), progress.Nop{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportFilesAndExport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "one.txt"), []byte(sampleFile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "two.txt"),
		[]byte(FormatEntry(Entry{ID: "KB_9", UseCase: "Disk full", RequiredInfo: []string{"Drive"}, SolutionSteps: "Free space"})), 0o644))

	svc := newService(t, "")
	ctx := context.Background()
	n, err := svc.ImportFiles(ctx, []string{filepath.Join(dir, "**", "*.txt")}, progress.Nop{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = svc.ImportFiles(ctx, []string{filepath.Join(dir, "*.none")}, progress.Nop{})
	assert.Error(t, err)

	out := filepath.Join(dir, "export.txt")
	count, err := svc.Export(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	exported, err := ParseFile(out)
	require.NoError(t, err)
	assert.Len(t, exported, 3)
}

func TestRenderSolution(t *testing.T) {
	html, err := RenderSolution("Restart Outlook\nRun `outlook /safe`")
	require.NoError(t, err)
	assert.Contains(t, html, "<li>Restart Outlook</li>")
	assert.Contains(t, html, "<code>outlook /safe</code>")

	html, err = RenderSolution("1. First\n2. Second")
	require.NoError(t, err)
	assert.Contains(t, html, "<ol>")
}

func TestParseSeq(t *testing.T) {
	n, ok := ParseSeq("KB_007")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = ParseSeq("KB_x")
	assert.False(t, ok)
	_, ok = ParseSeq("7")
	assert.False(t, ok)
	assert.Equal(t, "KB_012", FormatID(12))
	assert.Equal(t, "KB_1234", FormatID(1234))
}

func TestWarmStartUsesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := NewStore(database)

	open := func() *Service {
		vectors, err := vectordb.NewChromemStore(embeddings.NewLexicalEmbedder(256))
		require.NoError(t, err)
		return NewService(store, NewIndex(vectors, store, 0.35), path, logging.Nop())
	}

	first := open()
	restored, err := first.WarmStart(ctx, dir)
	require.NoError(t, err)
	assert.False(t, restored, "no snapshot yet")
	_, err = first.LoadFile(ctx, progress.Nop{})
	require.NoError(t, err)
	require.NoError(t, first.SaveIndex(ctx, dir))

	second := open()
	restored, err = second.WarmStart(ctx, dir)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, 2, second.Index().Size())

	// A new entry makes the snapshot stale.
	_, err = second.Register(ctx, Draft{UseCase: "Printer shows offline", SolutionSteps: "Restart the spooler"}, SourceAdmin)
	require.NoError(t, err)

	third := open()
	restored, err = third.WarmStart(ctx, dir)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, 3, third.Index().Size())
}

type countingEmbedder struct {
	embeddings.Embedder
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int32(len(texts)))
	return c.Embedder.Embed(ctx, texts)
}

func TestLoadFileAfterWarmStartEmbedsOnlyChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := NewStore(database)

	first := newServiceWith(t, store, embeddings.NewLexicalEmbedder(256), path)
	_, err = first.LoadFile(ctx, progress.Nop{})
	require.NoError(t, err)
	require.NoError(t, first.SaveIndex(ctx, dir))

	counter := &countingEmbedder{Embedder: embeddings.NewLexicalEmbedder(256)}
	second := newServiceWith(t, store, counter, path)
	restored, err := second.WarmStart(ctx, dir)
	require.NoError(t, err)
	require.True(t, restored)

	n, err := second.LoadFile(ctx, progress.Nop{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, counter.calls.Load(), "unchanged entries are not embedded again")

	edited := strings.Replace(sampleFile, "Use Case: VPN not connecting", "Use Case: VPN drops every hour", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))
	_, err = second.LoadFile(ctx, progress.Nop{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counter.calls.Load())
	assert.Equal(t, 2, second.Index().Size())

	e, err := second.Get(ctx, "KB_002")
	require.NoError(t, err)
	assert.Equal(t, "VPN drops every hour", e.UseCase)
}

func newServiceWith(t *testing.T, store *Store, embedder embeddings.Embedder, path string) *Service {
	t.Helper()
	vectors, err := vectordb.NewChromemStore(embedder)
	require.NoError(t, err)
	return NewService(store, NewIndex(vectors, store, 0.35), path, logging.Nop())
}
