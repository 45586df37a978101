package org

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alecgard/courtier/internal/authz"
)

// ErrNameTaken is returned when an organization name collides with an
// existing one. Names are unique across tenants.
var ErrNameTaken = errors.New("organization name already taken")

const uniqueViolation = "23505"

// Store provides database operations for organizations and the membership
// registry. The registry rows are the sole source of truth for permission
// checks; nothing caches a (org, user) -> role decision across requests.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an organization store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanOrg(scan func(dest ...any) error) (*Organization, error) {
	o := &Organization{}
	if err := scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts an organization and links the creator as its Owner in the
// same transaction. An org never exists, even transiently, without an owner.
func (s *Store) Create(ctx context.Context, in CreateOrgInput, ownerID uuid.UUID) (*Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrg(func(dest ...any) error {
		return tx.QueryRow(ctx,
			`INSERT INTO organizations (name, description)
			 VALUES ($1, $2)
			 RETURNING id, name, description, created_at`,
			in.Name, in.Description,
		).Scan(dest...)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO memberships (org_id, user_id, role) VALUES ($1, $2, $3)`,
		o.ID, ownerID, authz.RoleOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("linking owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing organization: %w", err)
	}
	return o, nil
}

// GetByID retrieves an organization by primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := scanOrg(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT id, name, description, created_at FROM organizations WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return o, nil
}

// List returns organizations with offset/limit pagination.
func (s *Store) List(ctx context.Context, offset, limit int) ([]*Organization, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, created_at
		 FROM organizations ORDER BY created_at DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		o, err := scanOrg(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// Update performs a partial update on the organization with the given id.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateOrgInput) (*Organization, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *in.Description)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE organizations SET %s WHERE id = $%d
		 RETURNING id, name, description, created_at`,
		strings.Join(setClauses, ", "), argIdx,
	)

	o, err := scanOrg(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("updating organization: %w", err)
	}
	return o, nil
}

// Delete removes an organization. Memberships and leads cascade away at the
// database layer.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting organization: %w", err)
	}
	return nil
}

// Link creates a membership row. Duplicate links fail on the composite
// primary key; the join flow checks Lookup first and treats an existing
// link as a no-op success.
func (s *Store) Link(ctx context.Context, orgID, userID uuid.UUID, role authz.Role) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO memberships (org_id, user_id, role)
		 VALUES ($1, $2, $3)
		 RETURNING org_id, user_id, role, joined_at`,
		orgID, userID, role,
	).Scan(&m.OrgID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("linking member: %w", err)
	}
	return m, nil
}

// Lookup returns the membership for (orgID, userID), or nil when the user
// is not a member. Absence is not an error here; callers decide whether it
// means NotAMember or a plain not-found.
func (s *Store) Lookup(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`SELECT org_id, user_id, role, joined_at
		 FROM memberships WHERE org_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(&m.OrgID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up membership: %w", err)
	}
	return m, nil
}

// SetRole updates the role on an existing membership. Returns the updated
// membership, or nil when no row matched.
func (s *Store) SetRole(ctx context.Context, orgID, userID uuid.UUID, role authz.Role) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`UPDATE memberships SET role = $3
		 WHERE org_id = $1 AND user_id = $2
		 RETURNING org_id, user_id, role, joined_at`,
		orgID, userID, role,
	).Scan(&m.OrgID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("setting member role: %w", err)
	}
	return m, nil
}

// Unlink removes a membership. Returns true when a row was deleted.
func (s *Store) Unlink(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memberships WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return false, fmt.Errorf("unlinking member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Members returns all members of an organization joined with their user
// profiles, in join order.
func (s *Store) Members(ctx context.Context, orgID uuid.UUID) ([]*Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, u.avatar_url, m.role, m.joined_at
		 FROM memberships m JOIN users u ON m.user_id = u.id
		 WHERE m.org_id = $1
		 ORDER BY m.joined_at ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.Email, &m.Name, &m.AvatarURL, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
