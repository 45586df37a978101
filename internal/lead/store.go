package lead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for leads and their history. Every
// mutation and its history entry commit in one transaction: if the history
// write fails, the mutation rolls back with it.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a lead store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const leadColumns = `id, org_id, name, email, phone, status, source, notes, assigned_to, created_at, updated_at`

func scanLead(scan func(dest ...any) error) (*Lead, error) {
	l := &Lead{}
	err := scan(&l.ID, &l.OrgID, &l.Name, &l.Email, &l.Phone, &l.Status, &l.Source, &l.Notes, &l.AssignedTo, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Create persists a new lead and its "created" history entry atomically.
// The history entry records only the fields the caller supplied.
func (s *Store) Create(ctx context.Context, orgID uuid.UUID, in CreateInput, actorID uuid.UUID) (*Lead, error) {
	status := StatusNew
	if in.Status.Set && in.Status.Valid {
		status = in.Status.Value
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := scanLead(func(dest ...any) error {
		return tx.QueryRow(ctx,
			`INSERT INTO leads (org_id, name, email, phone, status, source, notes, assigned_to)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+leadColumns,
			orgID, in.Name, in.Email.Ptr(), in.Phone.Ptr(), status,
			in.Source.Ptr(), in.Notes.Ptr(), in.AssignedTo.Ptr(),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating lead: %w", err)
	}

	err = insertHistory(ctx, tx, &History{
		LeadID:      l.ID,
		Action:      ActionCreated,
		PerformedBy: actorID,
		Description: fmt.Sprintf("Lead '%s' was created", l.Name),
		NewValue:    createdFields(in, orgID),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing lead: %w", err)
	}
	return l, nil
}

// GetByID retrieves a lead scoped to one organization. A lead that exists
// under a different organization is indistinguishable from a missing one.
func (s *Store) GetByID(ctx context.Context, leadID, orgID uuid.UUID) (*Lead, error) {
	l, err := scanLead(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND org_id = $2`,
			leadID, orgID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}
	return l, nil
}

// List returns an organization's leads with AND-combined filters and
// offset/limit pagination, newest first.
func (s *Store) List(ctx context.Context, orgID uuid.UUID, params ListParams) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE org_id = $1`
	args := []any{orgID}
	argIdx := 2

	if params.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.AssignedTo != uuid.Nil {
		query += fmt.Sprintf(" AND assigned_to = $%d", argIdx)
		args = append(args, params.AssignedTo)
		argIdx++
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC OFFSET $%d LIMIT $%d", argIdx, argIdx+1)
	args = append(args, params.Skip, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning lead row: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Update applies a patch to the given lead. Fields absent from the patch
// are untouched; fields whose value equals the stored one contribute
// nothing. An empty diff writes no history and does not bump updated_at.
// Otherwise the column updates and the history entry commit together.
func (s *Store) Update(ctx context.Context, current *Lead, p Patch, actorID uuid.UUID) (*Lead, error) {
	diff := computeDiff(current, p)
	if diff.Empty() {
		return current, nil
	}

	var setClauses []string
	var args []any
	argIdx := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if diff.Touches("name") {
		set("name", p.Name.Value)
	}
	if diff.Touches("email") {
		set("email", p.Email.Ptr())
	}
	if diff.Touches("phone") {
		set("phone", p.Phone.Ptr())
	}
	if diff.Touches("status") {
		set("status", p.Status.Value)
	}
	if diff.Touches("source") {
		set("source", p.Source.Ptr())
	}
	if diff.Touches("notes") {
		set("notes", p.Notes.Ptr())
	}
	if diff.Touches("assigned_to") {
		set("assigned_to", p.AssignedTo.Ptr())
	}
	setClauses = append(setClauses, "updated_at = now()")

	args = append(args, current.ID, current.OrgID)
	query := fmt.Sprintf(
		`UPDATE leads SET %s WHERE id = $%d AND org_id = $%d RETURNING `+leadColumns,
		strings.Join(setClauses, ", "), argIdx, argIdx+1,
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	l, err := scanLead(func(dest ...any) error {
		return tx.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating lead: %w", err)
	}

	err = insertHistory(ctx, tx, &History{
		LeadID:      l.ID,
		Action:      diff.Action(),
		PerformedBy: actorID,
		Description: diff.Description(),
		OldValue:    diff.Old,
		NewValue:    diff.New,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing lead update: %w", err)
	}
	return l, nil
}

// Delete hard-deletes a lead scoped to the organization. History rows
// cascade away at the database layer; no "deleted" entry is recorded.
// Returns false when no row matched.
func (s *Store) Delete(ctx context.Context, leadID, orgID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM leads WHERE id = $1 AND org_id = $2`, leadID, orgID)
	if err != nil {
		return false, fmt.Errorf("deleting lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// History returns a lead's audit entries, newest first. Callers scope the
// lead to an organization with GetByID before asking for history.
func (s *Store) History(ctx context.Context, leadID uuid.UUID) ([]*History, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, action, performed_by, description, old_value, new_value, created_at
		 FROM lead_history WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("listing lead history: %w", err)
	}
	defer rows.Close()

	var entries []*History
	for rows.Next() {
		h := &History{}
		var oldJSON, newJSON []byte
		err := rows.Scan(&h.ID, &h.LeadID, &h.Action, &h.PerformedBy, &h.Description, &oldJSON, &newJSON, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &h.OldValue); err != nil {
				return nil, fmt.Errorf("unmarshaling old value: %w", err)
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &h.NewValue); err != nil {
				return nil, fmt.Errorf("unmarshaling new value: %w", err)
			}
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// insertHistory appends one immutable entry inside the caller's
// transaction. Diff maps are stored as JSONB; nil maps store as NULL.
func insertHistory(ctx context.Context, tx pgx.Tx, h *History) error {
	oldJSON, err := marshalDiff(h.OldValue)
	if err != nil {
		return err
	}
	newJSON, err := marshalDiff(h.NewValue)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO lead_history (lead_id, action, performed_by, description, old_value, new_value)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		h.LeadID, h.Action, h.PerformedBy, h.Description, oldJSON, newJSON,
	)
	if err != nil {
		return fmt.Errorf("recording lead history: %w", err)
	}
	return nil
}

func marshalDiff(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling diff: %w", err)
	}
	return b, nil
}
