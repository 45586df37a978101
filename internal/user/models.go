package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. A user owns zero or more
// organization memberships; those live in the org package and are deleted
// independently of the user row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name"`
	AvatarURL    *string   `json:"avatar_url"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserInput holds the fields required to register a new user.
type CreateUserInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

// UpdateUserInput holds optional fields for a partial user update. Nil
// means "leave unchanged".
type UpdateUserInput struct {
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
