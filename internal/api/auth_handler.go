package api

import (
	"net/http"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/metrics"
	"github.com/alecgard/courtier/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users   *user.Store
	tokens  *auth.Tokens
	metrics *metrics.Metrics
}

func newAuthHandler(users *user.Store, tokens *auth.Tokens, m *metrics.Metrics) *authHandler {
	return &authHandler{users: users, tokens: tokens, metrics: m}
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to authenticate")
		return
	}
	if u == nil {
		if h.metrics != nil {
			h.metrics.IncAuthFailure("password")
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, err := h.tokens.IssueSession(u.Email, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	if h.metrics != nil {
		h.metrics.IncAuthSuccess("password")
	}
	auditLog(r, "login", "user", u.ID.String())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
	})
}
