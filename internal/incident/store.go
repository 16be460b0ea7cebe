package incident

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/helpdesk/internal/db"
)

// Store persists incidents in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const selectColumns = `id, session_id, user_demand, kb_id, status, required_info, collected_info,
	missing_info, questions, conversation_history, solution_steps, is_new_kb_entry,
	needs_kb_approval, admin_message, created_at, updated_at, completed_at, resolved_on, closed_on`

// Create inserts a new incident.
func (s *Store) Create(ctx context.Context, inc *Incident) error {
	cols, err := encodeLists(inc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO incidents (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.SessionID, inc.UserDemand, nullString(inc.KBID), string(inc.Status),
		cols.required, cols.collected, cols.missing, cols.questions, cols.history,
		inc.SolutionSteps, inc.IsNewKBEntry, inc.NeedsKBApproval, inc.AdminMessage,
		inc.CreatedAt, inc.UpdatedAt, nullTime(inc.CompletedAt), nullTime(inc.ResolvedOn), nullTime(inc.ClosedOn),
	)
	if err != nil {
		return fmt.Errorf("inserting incident: %w", err)
	}
	return nil
}

// Get returns the incident with the given id, or nil if it doesn't exist.
func (s *Store) Get(ctx context.Context, id string) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM incidents WHERE id = ?`, id)
	inc, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting incident: %w", err)
	}
	return inc, nil
}

// Patch lists the fields to change in Update. Nil fields are left alone;
// timestamps can be set but never cleared.
type Patch struct {
	Status          *Status
	KBID            *string
	CollectedInfo   *[]Field
	MissingInfo     *[]string
	History         *[]Message
	SolutionSteps   *string
	IsNewKBEntry    *bool
	NeedsKBApproval *bool
	AdminMessage    *string
	CompletedAt     *time.Time
	ResolvedOn      *time.Time
	ClosedOn        *time.Time
}

// ProgressPatch captures everything a conversation turn can change on an
// incident: collection state, transcript and status.
func ProgressPatch(inc *Incident) Patch {
	status := inc.Status
	collected := inc.CollectedInfo
	missing := inc.MissingInfo
	history := inc.History
	adminMessage := inc.AdminMessage
	return Patch{
		Status:        &status,
		CollectedInfo: &collected,
		MissingInfo:   &missing,
		History:       &history,
		AdminMessage:  &adminMessage,
		CompletedAt:   inc.CompletedAt,
		ClosedOn:      inc.ClosedOn,
	}
}

// StatusPatch captures a staff-side status change.
func StatusPatch(inc *Incident) Patch {
	status := inc.Status
	adminMessage := inc.AdminMessage
	return Patch{
		Status:       &status,
		AdminMessage: &adminMessage,
		CompletedAt:  inc.CompletedAt,
		ResolvedOn:   inc.ResolvedOn,
		ClosedOn:     inc.ClosedOn,
	}
}

// Update applies a patch. It returns ErrNotFound for an unknown id.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("updating incident: unknown status %q", *p.Status)
		}
		add("status", string(*p.Status))
	}
	if p.KBID != nil {
		add("kb_id", nullString(*p.KBID))
	}
	if p.CollectedInfo != nil {
		b, err := marshalList(*p.CollectedInfo, []Field{})
		if err != nil {
			return err
		}
		add("collected_info", b)
	}
	if p.MissingInfo != nil {
		b, err := marshalList(*p.MissingInfo, []string{})
		if err != nil {
			return err
		}
		add("missing_info", b)
	}
	if p.History != nil {
		b, err := marshalList(*p.History, []Message{})
		if err != nil {
			return err
		}
		add("conversation_history", b)
	}
	if p.SolutionSteps != nil {
		add("solution_steps", *p.SolutionSteps)
	}
	if p.IsNewKBEntry != nil {
		add("is_new_kb_entry", *p.IsNewKBEntry)
	}
	if p.NeedsKBApproval != nil {
		add("needs_kb_approval", *p.NeedsKBApproval)
	}
	if p.AdminMessage != nil {
		add("admin_message", *p.AdminMessage)
	}
	if p.CompletedAt != nil {
		add("completed_at", p.CompletedAt.UTC())
	}
	if p.ResolvedOn != nil {
		add("resolved_on", p.ResolvedOn.UTC())
	}
	if p.ClosedOn != nil {
		add("closed_on", p.ClosedOn.UTC())
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE incidents SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes an incident. It returns ErrNotFound for an unknown id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns incidents matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Incident, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.NeedsApproval != nil {
		clauses = append(clauses, "needs_kb_approval = ?")
		args = append(args, *filter.NeedsApproval)
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}

	query := "SELECT " + selectColumns + " FROM incidents"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

// LatestID returns the highest incident id, or "" for an empty table.
func (s *Store) LatestID(ctx context.Context) (string, error) {
	var id sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM incidents`).Scan(&id); err != nil {
		return "", fmt.Errorf("reading latest incident id: %w", err)
	}
	return id.String, nil
}

// Stats counts incidents by status and pending KB approvals.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[Status]int, len(Statuses))}
	for _, status := range Statuses {
		st.ByStatus[status] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting incidents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		st.ByStatus[Status(status)] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE needs_kb_approval = 1`).Scan(&st.NeedsKBApproval)
	if err != nil {
		return nil, fmt.Errorf("counting approvals: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (*Incident, error) {
	var (
		inc                                               Incident
		kbID                                              sql.NullString
		status                                            string
		required, collected, missing, questions, history string
		completedAt, resolvedOn, closedOn                 sql.NullTime
	)
	err := row.Scan(&inc.ID, &inc.SessionID, &inc.UserDemand, &kbID, &status,
		&required, &collected, &missing, &questions, &history,
		&inc.SolutionSteps, &inc.IsNewKBEntry, &inc.NeedsKBApproval, &inc.AdminMessage,
		&inc.CreatedAt, &inc.UpdatedAt, &completedAt, &resolvedOn, &closedOn)
	if err != nil {
		return nil, err
	}
	inc.KBID = kbID.String
	inc.Status = Status(status)

	for _, col := range []struct {
		raw  string
		into any
	}{
		{required, &inc.RequiredInfo},
		{collected, &inc.CollectedInfo},
		{missing, &inc.MissingInfo},
		{questions, &inc.Questions},
		{history, &inc.History},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.into); err != nil {
			return nil, fmt.Errorf("decoding incident %s: %w", inc.ID, err)
		}
	}
	if inc.RequiredInfo == nil {
		inc.RequiredInfo = []string{}
	}
	if inc.CollectedInfo == nil {
		inc.CollectedInfo = []Field{}
	}
	if inc.MissingInfo == nil {
		inc.MissingInfo = []string{}
	}
	if inc.Questions == nil {
		inc.Questions = []string{}
	}
	if inc.History == nil {
		inc.History = []Message{}
	}

	if completedAt.Valid {
		inc.CompletedAt = &completedAt.Time
	}
	if resolvedOn.Valid {
		inc.ResolvedOn = &resolvedOn.Time
	}
	if closedOn.Valid {
		inc.ClosedOn = &closedOn.Time
	}
	return &inc, nil
}

type encodedLists struct {
	required, collected, missing, questions, history string
}

func encodeLists(inc *Incident) (encodedLists, error) {
	var (
		out encodedLists
		err error
	)
	if out.required, err = marshalList(inc.RequiredInfo, []string{}); err != nil {
		return out, err
	}
	if out.collected, err = marshalList(inc.CollectedInfo, []Field{}); err != nil {
		return out, err
	}
	if out.missing, err = marshalList(inc.MissingInfo, []string{}); err != nil {
		return out, err
	}
	if out.questions, err = marshalList(inc.Questions, []string{}); err != nil {
		return out, err
	}
	if out.history, err = marshalList(inc.History, []Message{}); err != nil {
		return out, err
	}
	return out, nil
}

// marshalList encodes v as JSON, writing empty instead of null for a nil
// slice.
func marshalList[T any](v []T, empty []T) (string, error) {
	if v == nil {
		v = empty
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding incident column: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
