package lead

import (
	"time"

	"github.com/google/uuid"
)

// Status is a lead's position in the sales lifecycle.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusWon       Status = "won"
)

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon:
		return true
	}
	return false
}

// Action tags a history entry with the kind of mutation it records.
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionAssigned      Action = "assigned"
	ActionStatusChanged Action = "status_changed"
	ActionDeleted       Action = "deleted"
)

// Lead belongs to exactly one organization and is optionally assigned to
// one user. All mutations go through the Store so every change lands in
// the history table.
type Lead struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"organization_id"`
	Name       string     `json:"name"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	Status     Status     `json:"status"`
	Source     *string    `json:"source"`
	Notes      *string    `json:"notes"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// History is one immutable audit entry for a lead. The old/new maps are
// sparse: they hold only the fields that actually changed, never the whole
// record. Rows are never updated or deleted once written; they disappear
// only when the lead itself is deleted (cascade).
type History struct {
	ID          uuid.UUID      `json:"id"`
	LeadID      uuid.UUID      `json:"lead_id"`
	Action      Action         `json:"action"`
	PerformedBy uuid.UUID      `json:"performed_by"`
	Description string         `json:"description"`
	OldValue    map[string]any `json:"old_value"`
	NewValue    map[string]any `json:"new_value"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CreateInput holds the fields for creating a lead. Optional fields use the
// tri-state Field type so the history entry can record exactly what the
// caller supplied, not what defaulting filled in.
type CreateInput struct {
	Name       string           `json:"name"`
	Email      Field[string]    `json:"email"`
	Phone      Field[string]    `json:"phone"`
	Status     Field[Status]    `json:"status"`
	Source     Field[string]    `json:"source"`
	Notes      Field[string]    `json:"notes"`
	AssignedTo Field[uuid.UUID] `json:"assigned_to"`
}

// ListParams filters and paginates a lead listing. Filters are
// AND-combined; Limit defaults to 100 when non-positive.
type ListParams struct {
	Status     Status
	AssignedTo uuid.UUID
	Skip       int
	Limit      int
}
