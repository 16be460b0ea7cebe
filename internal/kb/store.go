package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/db"
)

// Store persists KB entries in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert writes an entry loaded from the KB file and returns the id it is
// stored under. Entries are keyed by sequence number and stored under the
// padded id, so "KB_6" and "KB_006" are the same entry.
func (s *Store) Upsert(ctx context.Context, e Entry) (string, error) {
	seq, ok := ParseSeq(e.ID)
	if !ok {
		return "", fmt.Errorf("invalid kb id %q", e.ID)
	}
	required, questions, err := encodeEntry(e)
	if err != nil {
		return "", err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var id string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO kb_entries (id, seq, use_case, required_info, questions, solution_steps, source_incident, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO UPDATE SET
			use_case = excluded.use_case,
			required_info = excluded.required_info,
			questions = excluded.questions,
			solution_steps = excluded.solution_steps
		RETURNING id`,
		FormatID(seq), seq, e.UseCase, required, questions, e.SolutionSteps, e.SourceIncident, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting kb entry %s: %w", e.ID, err)
	}
	return id, nil
}

// Add inserts a draft under the next free id (highest sequence + 1) and
// returns the stored entry. The id is allocated in the same statement as
// the insert, so concurrent approvals can't collide.
func (s *Store) Add(ctx context.Context, d Draft) (*Entry, error) {
	e := Entry{
		UseCase:        d.UseCase,
		RequiredInfo:   d.RequiredInfo,
		Questions:      d.Questions,
		SolutionSteps:  d.SolutionSteps,
		SourceIncident: d.SourceIncident,
		CreatedAt:      time.Now().UTC(),
	}
	if e.RequiredInfo == nil {
		e.RequiredInfo = []string{}
	}
	if len(e.Questions) != len(e.RequiredInfo) {
		e.Questions = GenerateQuestions(e.RequiredInfo)
	}
	required, questions, err := encodeEntry(e)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		WITH next AS (SELECT COALESCE(MAX(seq), 0) + 1 AS n FROM kb_entries)
		INSERT INTO kb_entries (id, seq, use_case, required_info, questions, solution_steps, source_incident, created_at)
		SELECT printf('KB_%03d', n), n, ?, ?, ?, ?, ?, ? FROM next
		RETURNING id, seq`,
		e.UseCase, required, questions, e.SolutionSteps, e.SourceIncident, e.CreatedAt,
	).Scan(&e.ID, &e.Seq)
	if err != nil {
		return nil, fmt.Errorf("inserting kb entry: %w", err)
	}
	return &e, nil
}

// Get returns the entry with the given id, or nil if it doesn't exist. The
// id is matched by sequence number, so padding doesn't matter.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	seq, ok := ParseSeq(id)
	if !ok {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, use_case, required_info, questions, solution_steps, source_incident, created_at
		FROM kb_entries WHERE seq = ?`, seq)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting kb entry: %w", err)
	}
	return e, nil
}

// List returns all entries ordered by sequence number.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, use_case, required_info, questions, solution_steps, source_incident, created_at
		FROM kb_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing kb entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning kb entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting kb entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                   Entry
		required, questions string
	)
	err := row.Scan(&e.ID, &e.Seq, &e.UseCase, &required, &questions, &e.SolutionSteps, &e.SourceIncident, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(required), &e.RequiredInfo); err != nil {
		return nil, fmt.Errorf("decoding required_info: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &e.Questions); err != nil {
		return nil, fmt.Errorf("decoding questions: %w", err)
	}
	return &e, nil
}

func encodeEntry(e Entry) (required, questions string, err error) {
	r := e.RequiredInfo
	if r == nil {
		r = []string{}
	}
	q := e.Questions
	if q == nil {
		q = []string{}
	}
	rb, err := json.Marshal(r)
	if err != nil {
		return "", "", fmt.Errorf("encoding required_info: %w", err)
	}
	qb, err := json.Marshal(q)
	if err != nil {
		return "", "", fmt.Errorf("encoding questions: %w", err)
	}
	return string(rb), string(qb), nil
}
