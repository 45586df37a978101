package org

import (
	"time"

	"github.com/google/uuid"

	"github.com/alecgard/courtier/internal/authz"
)

// Organization is the tenant boundary. It owns memberships and leads;
// deleting it cascades both away at the database layer.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership binds one role to an (organization, user) pair. The pair is
// the composite primary key, so a user holds at most one role per org.
type Membership struct {
	OrgID    uuid.UUID  `json:"organization_id"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     authz.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Member is the membership row joined with the user's profile, as returned
// by the member-list endpoint.
type Member struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      *string    `json:"name"`
	AvatarURL *string    `json:"avatar_url"`
	Role      authz.Role `json:"role"`
	JoinedAt  time.Time  `json:"joined_at"`
}

// CreateOrgInput holds the fields for creating an organization.
type CreateOrgInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// UpdateOrgInput holds optional fields for a partial organization update.
type UpdateOrgInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
