package kb

import (
	"context"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/helpdesk/internal/progress"
)

const parseConcurrency = 4

// ImportFiles loads every KB file matching the glob patterns ("kb/**/*.txt").
// Files are parsed in parallel, then stored and indexed in path order so
// later files win on duplicate ids.
func (s *Service) ImportFiles(ctx context.Context, patterns []string, reporter progress.Reporter) (int, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return 0, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return 0, fmt.Errorf("no files match %v", patterns)
	}

	parsed := make([][]Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := ParseFile(path)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			parsed[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var all []Entry
	for _, entries := range parsed {
		all = append(all, entries...)
	}
	n, err := s.Load(ctx, all, reporter)
	if err != nil {
		return n, err
	}
	s.log.Info().Int("files", len(paths)).Int("entries", n).Msg("imported kb files")
	return n, nil
}
