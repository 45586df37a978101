package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alecgard/courtier/internal/config"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, expiry, wrong subject, or malformed payload.
var ErrInvalidToken = errors.New("invalid token")

// invitationSubject is the fixed subject claim of invitation tokens. A
// session token presented to the join endpoint fails the subject check.
const invitationSubject = "invitation"

// sessionClaims is the payload of a bearer session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// invitationClaims is the payload of an organization invitation token.
type invitationClaims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
}

// Tokens issues and verifies session and invitation tokens, signed HS256
// with the configured secret. Both token kinds are stateless: possession of
// a valid unexpired token is the whole credential, and invitations cannot
// be revoked before expiry.
type Tokens struct {
	secret        []byte
	sessionTTL    time.Duration
	invitationTTL time.Duration
	now           func() time.Time // injectable clock for testing
}

// NewTokens builds a token service from the auth configuration.
func NewTokens(cfg config.AuthConfig) *Tokens {
	return &Tokens{
		secret:        []byte(cfg.Secret),
		sessionTTL:    cfg.SessionDuration,
		invitationTTL: cfg.InvitationTTL,
		now:           time.Now,
	}
}

// IssueSession signs a session token for the given user. The subject claim
// carries the email; user_id carries the uuid in string form.
func (t *Tokens) IssueSession(email string, userID uuid.UUID) (string, error) {
	now := t.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL)),
		},
		UserID: userID.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifySession validates a session token and returns the email and user id
// it was issued for. Returns ErrInvalidToken on any failure.
func (t *Tokens) VerifySession(token string) (string, uuid.UUID, error) {
	claims := &sessionClaims{}
	if err := t.parse(token, claims); err != nil {
		return "", uuid.Nil, err
	}
	if claims.Subject == "" || claims.Subject == invitationSubject {
		return "", uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", uuid.Nil, ErrInvalidToken
	}
	return claims.Subject, userID, nil
}

// IssueInvitation signs an invitation token binding the organization id.
// A non-positive ttl selects the configured default (7 days).
func (t *Tokens) IssueInvitation(orgID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = t.invitationTTL
	}
	now := t.now().UTC()
	claims := invitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   invitationSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OrgID: orgID.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyInvitation validates an invitation token and extracts the
// organization id. It returns ErrInvalidToken (never panics, never a partial
// result) on signature failure, expiry, wrong subject, or a missing or
// malformed org_id.
func (t *Tokens) VerifyInvitation(token string) (uuid.UUID, error) {
	claims := &invitationClaims{}
	if err := t.parse(token, claims); err != nil {
		return uuid.Nil, err
	}
	if claims.Subject != invitationSubject {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.OrgID == "" {
		return uuid.Nil, ErrInvalidToken
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return orgID, nil
}

func (t *Tokens) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
