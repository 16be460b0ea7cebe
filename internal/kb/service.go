package kb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ziadkadry99/helpdesk/internal/logging"
	"github.com/ziadkadry99/helpdesk/internal/progress"
)

// Index sources recorded on vector documents.
const (
	SourceFile     = "file"
	SourceApproval = "approval"
	SourceAdmin    = "admin"
)

// Service ties the KB store, its index and the text file together.
type Service struct {
	store    *Store
	index    *Index
	filePath string
	log      *logging.Logger
}

// NewService creates a KB service. An empty filePath disables the text
// file mirror.
func NewService(store *Store, index *Index, filePath string, logger *logging.Logger) *Service {
	return &Service{store: store, index: index, filePath: filePath, log: logger.Sub("kb")}
}

// Index returns the lookup index.
func (s *Service) Index() *Index { return s.index }

// Get returns an entry or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, nil
}

// List returns all entries.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.store.List(ctx)
	if entries == nil && err == nil {
		entries = []Entry{}
	}
	return entries, err
}

// Register adds a new entry under the next free id, indexes it and
// appends it to the KB file. source is SourceApproval or SourceAdmin.
func (s *Service) Register(ctx context.Context, d Draft, source string) (*Entry, error) {
	e, err := s.store.Add(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := s.index.Add(ctx, source, *e); err != nil {
		return nil, err
	}
	if s.filePath != "" {
		if err := AppendFile(s.filePath, *e); err != nil {
			// The entry is stored and searchable; only the mirror is stale.
			s.log.Warn().Err(err).Str("kb_id", e.ID).Msg("appending to kb file")
		}
	}
	s.log.Info().Str("kb_id", e.ID).Str("source", source).Msg("registered kb entry")
	return e, nil
}

// Load stores and indexes entries, reporting progress per entry. Entries
// already indexed with the same use case (after a WarmStart, say) are not
// embedded again. It returns the number of entries loaded.
func (s *Service) Load(ctx context.Context, entries []Entry, reporter progress.Reporter) (int, error) {
	reporter.Start(len(entries))
	defer reporter.Finish()

	skipped := 0
	for i, e := range entries {
		id, err := s.store.Upsert(ctx, e)
		if err != nil {
			return i, err
		}
		e.ID = id
		if s.index.Indexed(ctx, e) {
			skipped++
		} else if err := s.index.Add(ctx, SourceFile, e); err != nil {
			return i, err
		}
		reporter.Update(i+1, e.ID)
	}
	if skipped > 0 {
		s.log.Debug().Int("unchanged", skipped).Msg("kb entries already indexed")
	}
	return len(entries), nil
}

// LoadFile loads the configured KB file. A missing file is not an error.
func (s *Service) LoadFile(ctx context.Context, reporter progress.Reporter) (int, error) {
	if s.filePath == "" {
		return 0, nil
	}
	entries, err := ParseFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Str("path", s.filePath).Msg("kb file not found, starting with an empty knowledge base")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	n, err := s.Load(ctx, entries, reporter)
	if err != nil {
		return n, err
	}
	s.log.Info().Int("entries", n).Str("path", s.filePath).Msg("loaded kb file")
	return n, nil
}

// WarmStart fills the index from the snapshot in dir when it covers every
// stored entry, and re-embeds the whole store otherwise. It reports
// whether the snapshot was used.
func (s *Service) WarmStart(ctx context.Context, dir string) (bool, error) {
	stored, err := s.store.Count(ctx)
	if err != nil {
		return false, err
	}
	if err := s.index.vectors.Load(ctx, dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("dir", dir).Msg("kb index snapshot unreadable, reindexing")
		}
	} else if s.index.Size() == stored {
		s.log.Debug().Int("entries", stored).Msg("kb index restored from snapshot")
		return true, nil
	}
	return false, s.Reindex(ctx)
}

// SaveIndex snapshots the index to dir for the next WarmStart.
func (s *Service) SaveIndex(ctx context.Context, dir string) error {
	if err := s.index.vectors.Persist(ctx, dir); err != nil {
		return fmt.Errorf("saving kb index: %w", err)
	}
	return nil
}

// Reindex puts every stored entry into the index.
func (s *Service) Reindex(ctx context.Context) error {
	entries, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return s.index.Add(ctx, SourceFile, entries...)
}

// Export writes every stored entry to path in the KB file format.
func (s *Service) Export(ctx context.Context, path string) (int, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteFile(path, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
