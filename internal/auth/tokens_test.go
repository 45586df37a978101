package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alecgard/courtier/internal/config"
)

func testTokens(t *testing.T) *Tokens {
	t.Helper()
	return NewTokens(config.AuthConfig{
		Secret:          "test-secret",
		SessionDuration: time.Hour,
		InvitationTTL:   7 * 24 * time.Hour,
	})
}

func TestSessionRoundTrip(t *testing.T) {
	tokens := testTokens(t)
	userID := uuid.New()

	tok, err := tokens.IssueSession("alice@example.com", userID)
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}

	email, gotID, err := tokens.VerifySession(tok)
	if err != nil {
		t.Fatalf("unexpected error verifying session: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email mismatch: got %q", email)
	}
	if gotID != userID {
		t.Errorf("user id mismatch: got %s, want %s", gotID, userID)
	}
}

func TestSessionExpired(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueSession("alice@example.com", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move the clock past expiry before verifying.
	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, _, err := tokens.VerifySession(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessionWrongSecret(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueSession("alice@example.com", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewTokens(config.AuthConfig{
		Secret:          "different-secret",
		SessionDuration: time.Hour,
		InvitationTTL:   time.Hour,
	})
	if _, _, err := other.VerifySession(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestInvitationRoundTrip(t *testing.T) {
	tokens := testTokens(t)
	orgID := uuid.New()

	tok, err := tokens.IssueInvitation(orgID, 0)
	if err != nil {
		t.Fatalf("unexpected error issuing invitation: %v", err)
	}

	got, err := tokens.VerifyInvitation(tok)
	if err != nil {
		t.Fatalf("unexpected error verifying invitation: %v", err)
	}
	if got != orgID {
		t.Errorf("org id mismatch: got %s, want %s", got, orgID)
	}
}

func TestInvitationExpired(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueInvitation(uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tokens.VerifyInvitation(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestInvitationTampered(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueInvitation(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := tokens.VerifyInvitation(tampered); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

// A session token is not a valid invitation: the subject claim differs.
func TestInvitationWrongSubject(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueSession("alice@example.com", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tokens.VerifyInvitation(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for session token, got %v", err)
	}
}

// And the reverse: an invitation token cannot open a session.
func TestSessionRejectsInvitationToken(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.IssueInvitation(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := tokens.VerifySession(tok); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for invitation token, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	tokens := testTokens(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := tokens.VerifyInvitation(tok); err != ErrInvalidToken {
			t.Errorf("VerifyInvitation(%q): expected ErrInvalidToken, got %v", tok, err)
		}
		if _, _, err := tokens.VerifySession(tok); err != ErrInvalidToken {
			t.Errorf("VerifySession(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(4) // MinCost keeps the test fast
	digest, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digest == "s3cret" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !h.Verify("s3cret", digest) {
		t.Error("expected matching password to verify")
	}
	if h.Verify("wrong", digest) {
		t.Error("expected non-matching password to fail")
	}
}
