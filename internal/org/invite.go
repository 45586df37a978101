package org

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/authz"
)

// ErrInvalidInvitation is returned when a join token fails verification:
// bad signature, expiry, wrong subject, or a malformed org id.
var ErrInvalidInvitation = errors.New("invalid or expired invitation token")

// Invitation is the result of issuing an invite: the signed token plus a
// ready-to-share join URL.
type Invitation struct {
	Token string `json:"token"`
	URL   string `json:"invitation_url"`
}

// JoinResult reports what redeeming an invitation did.
type JoinResult struct {
	OrgID         uuid.UUID `json:"org_id"`
	AlreadyMember bool      `json:"already_member"`
}

// Inviter issues and redeems invitation tokens. Tokens are stateless and
// self-contained; nothing about an invitation is persisted, and issued
// tokens cannot be revoked before they expire.
type Inviter struct {
	tokens  *auth.Tokens
	store   *Store
	baseURL string
}

// NewInviter creates an invitation service over the given token signer and
// membership store. baseURL is prepended to the join link (path or absolute).
func NewInviter(tokens *auth.Tokens, store *Store, baseURL string) *Inviter {
	return &Inviter{tokens: tokens, store: store, baseURL: baseURL}
}

// Invite signs an invitation token for the organization. ttl <= 0 selects
// the configured default (7 days).
func (i *Inviter) Invite(orgID uuid.UUID, ttl time.Duration) (*Invitation, error) {
	token, err := i.tokens.IssueInvitation(orgID, ttl)
	if err != nil {
		return nil, fmt.Errorf("signing invitation: %w", err)
	}
	return &Invitation{
		Token: token,
		URL:   fmt.Sprintf("%s?token=%s", i.baseURL, token),
	}, nil
}

// Join redeems an invitation token for the given user. Verification itself
// mutates nothing; if the user already holds a membership the call is a
// no-op success, otherwise a Member-role link is created.
func (i *Inviter) Join(ctx context.Context, token string, userID uuid.UUID) (*JoinResult, error) {
	orgID, err := i.tokens.VerifyInvitation(token)
	if err != nil {
		return nil, ErrInvalidInvitation
	}

	existing, err := i.store.Lookup(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &JoinResult{OrgID: orgID, AlreadyMember: true}, nil
	}

	if _, err := i.store.Link(ctx, orgID, userID, authz.RoleMember); err != nil {
		return nil, err
	}
	return &JoinResult{OrgID: orgID}, nil
}
