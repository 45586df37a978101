package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// usersHandler groups user account HTTP handlers.
type usersHandler struct {
	store *user.Store
}

func newUsersHandler(store *user.Store) *usersHandler {
	return &usersHandler{store: store}
}

// parsePagination reads offset/limit style query params with defaults.
func parsePagination(r *http.Request, offsetParam, limitParam string, defaultLimit int) (int, int) {
	offset := 0
	limit := defaultLimit
	if v := r.URL.Query().Get(offsetParam); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get(limitParam); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return offset, limit
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// Register handles POST /api/v1/users (public).
func (h *usersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "password must be at least 8 characters")
		return
	}

	u, err := h.store.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "failed to create user")
		return
	}

	auditLog(r, "register", "user", u.ID.String())
	writeJSON(w, http.StatusCreated, u)
}

// List handles GET /api/v1/users.
func (h *usersHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r, "skip", "limit", 100)

	users, err := h.store.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}
	if users == nil {
		users = []*user.User{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// Me handles GET /api/v1/users/me.
func (h *usersHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Get handles GET /api/v1/users/{id}.
func (h *usersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user id must be a UUID")
		return
	}

	u, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// Update handles PUT /api/v1/users/{id}. Users may only update themselves.
func (h *usersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user id must be a UUID")
		return
	}

	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	if caller.ID != id {
		writeError(w, http.StatusForbidden, "forbidden", "cannot update another user's account")
		return
	}

	var input user.UpdateUserInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if input.Password != nil && len(*input.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "password must be at least 8 characters")
		return
	}

	u, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		writeDomainError(w, err, "failed to update user")
		return
	}

	auditLog(r, "update", "user", u.ID.String())
	writeJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /api/v1/users/{id}. Users may only delete themselves.
func (h *usersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user id must be a UUID")
		return
	}

	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	if caller.ID != id {
		writeError(w, http.StatusForbidden, "forbidden", "cannot delete another user's account")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete user")
		return
	}

	auditLog(r, "delete", "user", id.String())
	w.WriteHeader(http.StatusNoContent)
}
