package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/config"
	"github.com/alecgard/courtier/internal/metrics"
	"github.com/alecgard/courtier/internal/ratelimit"
)

func newTestTokens() *auth.Tokens {
	return auth.NewTokens(config.AuthConfig{
		Secret:          "handler-test-secret",
		SessionDuration: time.Hour,
		InvitationTTL:   time.Hour,
	})
}

// newTestRouter builds a router with no database-backed stores. Routes that
// fail before touching a store (health, auth parsing, validation) are
// exercisable this way.
func newTestRouter() http.Handler {
	return NewRouter(RouterDeps{
		Tokens:         newTestTokens(),
		Limiter:        ratelimit.New(100, time.Minute),
		AllowedOrigins: []string{"*"},
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return env.Error
}

// ---------------------------------------------------------------------------
// Body decoding
// ---------------------------------------------------------------------------

// Handlers with optional bodies decode unconditionally and treat EOF as "no
// body", so chunked requests (ContentLength -1) are still honored.
func TestReadJSONEmptyAndChunkedBodies(t *testing.T) {
	var v struct {
		N int `json:"n"`
	}

	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := readJSON(empty, &v); !errors.Is(err, io.EOF) {
		t.Fatalf("empty body: got %v, want io.EOF", err)
	}

	chunked := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"n": 30}`))
	chunked.ContentLength = -1
	if err := readJSON(chunked, &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.N != 30 {
		t.Errorf("got %d, want 30", v.N)
	}
}

// ---------------------------------------------------------------------------
// Health check
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

// ---------------------------------------------------------------------------
// Authentication boundary
// ---------------------------------------------------------------------------

func TestAuthenticatedRoutesRequireBearer(t *testing.T) {
	handler := newTestRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPost, "/api/v1/organizations"},
		{http.MethodGet, "/api/v1/organizations"},
		{http.MethodPost, "/api/v1/organizations/join"},
		{http.MethodGet, "/api/v1/organizations/4f5c6c9e-0000-0000-0000-000000000000/members"},
		{http.MethodPost, "/api/v1/organizations/4f5c6c9e-0000-0000-0000-000000000000/leads"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", rt.method, rt.path, rec.Code)
			continue
		}
		detail := decodeError(t, rec)
		if detail.Code != "unauthorized" {
			t.Errorf("%s %s: expected code unauthorized, got %q", rt.method, rt.path, detail.Code)
		}
	}
}

func TestGarbageBearerTokenRejected(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Login validation (fails before any store access)
// ---------------------------------------------------------------------------

func TestLoginRejectsMalformedBody(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Code != "invalid_body" {
		t.Errorf("expected code invalid_body, got %q", detail.Code)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"","password":""}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Code != "validation_error" {
		t.Errorf("expected code validation_error, got %q", detail.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler := NewRouter(RouterDeps{
		Tokens:         newTestTokens(),
		Limiter:        ratelimit.New(1, time.Minute),
		AllowedOrigins: []string{"*"},
	})

	body := `{"email":"","password":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("first request: expected 422, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Register validation
// ---------------------------------------------------------------------------

func TestRegisterValidation(t *testing.T) {
	handler := newTestRouter()

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"longenough"}`},
		{"bad email", `{"email":"nope","password":"longenough"}`},
		{"short password", `{"email":"a@b.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
			if detail := decodeError(t, rec); detail.Code != "validation_error" {
				t.Errorf("expected code validation_error, got %q", detail.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CORS middleware
// ---------------------------------------------------------------------------

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		allowedOrigins  []string
		requestOrigin   string
		method          string
		wantStatus      int
		wantAllowOrigin string
	}{
		{
			name:            "wildcard allows any origin",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "*",
		},
		{
			name:            "listed origin is echoed back",
			allowedOrigins:  []string{"https://app.example.com"},
			requestOrigin:   "https://app.example.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://app.example.com",
		},
		{
			name:            "unlisted origin gets no allow header",
			allowedOrigins:  []string{"https://app.example.com"},
			requestOrigin:   "https://evil.example.com",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "",
		},
		{
			name:            "preflight short-circuits",
			allowedOrigins:  []string{"*"},
			requestOrigin:   "https://example.com",
			method:          http.MethodOptions,
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(tt.allowedOrigins)(inner)

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.requestOrigin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("expected Allow-Origin %q, got %q", tt.wantAllowOrigin, got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Request ID and security headers
// ---------------------------------------------------------------------------

func TestRequestIDGenerated(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-ID")
	if len(id) != 32 {
		t.Errorf("expected generated 32-char request id, got %q", id)
	}
}

func TestRequestIDPreserved(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-chosen-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-chosen-id" {
		t.Errorf("expected request id to round-trip, got %q", got)
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Metrics endpoint
// ---------------------------------------------------------------------------

func TestMetricsEndpoint(t *testing.T) {
	handler := NewRouter(RouterDeps{
		Tokens:         newTestTokens(),
		Limiter:        ratelimit.New(100, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	})

	// Generate one request so counters are non-zero.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var summary metrics.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.HTTP.TotalRequests < 1 {
		t.Errorf("expected at least one recorded request, got %v", summary.HTTP.TotalRequests)
	}
}
