package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/db"
)

// Store persists sessions in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Patch lists the fields to change in Update. Nil fields are left alone.
type Patch struct {
	ActiveIncidents *[]string
	Context         *[]Turn
	Awaiting        *Slot
	PendingQuery    *string
}

// FullPatch builds a patch that writes every mutable field of s.
func FullPatch(s *Session) Patch {
	active := s.ActiveIncidents
	turns := s.Context
	awaiting := s.Awaiting
	pending := s.PendingQuery
	return Patch{
		ActiveIncidents: &active,
		Context:         &turns,
		Awaiting:        &awaiting,
		PendingQuery:    &pending,
	}
}

// Create inserts an empty session with the given id and returns it.
func (s *Store) Create(ctx context.Context, id string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:              id,
		ActiveIncidents: []string{},
		Context:         []Turn{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, active_incidents, conversation_context, awaiting_response, pending_query, created_at, updated_at)
		 VALUES (?, '[]', '[]', '', '', ?, ?)`,
		id, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

// Get returns the session with the given id, or nil if it doesn't exist.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess          Session
		active, turns string
		awaiting      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, active_incidents, conversation_context, awaiting_response, pending_query, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &active, &turns, &awaiting, &sess.PendingQuery, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if err := json.Unmarshal([]byte(active), &sess.ActiveIncidents); err != nil {
		return nil, fmt.Errorf("decoding active incidents: %w", err)
	}
	if err := json.Unmarshal([]byte(turns), &sess.Context); err != nil {
		return nil, fmt.Errorf("decoding conversation context: %w", err)
	}
	if sess.ActiveIncidents == nil {
		sess.ActiveIncidents = []string{}
	}
	if sess.Context == nil {
		sess.Context = []Turn{}
	}
	sess.Awaiting = Slot(awaiting)
	return &sess, nil
}

// Update applies a patch to the session. An empty patch only bumps
// updated_at.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if p.ActiveIncidents != nil {
		b, err := json.Marshal(nonNil(*p.ActiveIncidents))
		if err != nil {
			return fmt.Errorf("encoding active incidents: %w", err)
		}
		sets = append(sets, "active_incidents = ?")
		args = append(args, string(b))
	}
	if p.Context != nil {
		turns := *p.Context
		if turns == nil {
			turns = []Turn{}
		}
		b, err := json.Marshal(turns)
		if err != nil {
			return fmt.Errorf("encoding conversation context: %w", err)
		}
		sets = append(sets, "conversation_context = ?")
		args = append(args, string(b))
	}
	if p.Awaiting != nil {
		sets = append(sets, "awaiting_response = ?")
		args = append(args, string(*p.Awaiting))
	}
	if p.PendingQuery != nil {
		sets = append(sets, "pending_query = ?")
		args = append(args, *p.PendingQuery)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
