package api

import (
	"net/http"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/authz"
	"github.com/alecgard/courtier/internal/org"
)

// membersHandler groups membership HTTP handlers.
type membersHandler struct {
	store *org.Store
}

func newMembersHandler(store *org.Store) *membersHandler {
	return &membersHandler{store: store}
}

// List handles GET /api/v1/organizations/{id}/members (any member).
func (h *membersHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.store, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionListMembers); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	members, err := h.store.Members(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list members")
		return
	}
	if members == nil {
		members = []*org.Member{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
	})
}

// SetRole handles PUT /api/v1/organizations/{id}/members/{userID}.
func (h *membersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	targetID, ok := parseUUIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	var req struct {
		Role authz.Role `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "role must be one of owner, admin, member, viewer")
		return
	}

	requester, err := requireMembership(r.Context(), h.store, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}

	target, err := h.store.Lookup(r.Context(), orgID, targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve membership")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "not_found", "membership not found")
		return
	}

	if err := authz.AuthorizeRoleChange(requester.Role, target.Role, req.Role); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	updated, err := h.store.SetRole(r.Context(), orgID, targetID, req.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update role")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "not_found", "membership not found")
		return
	}

	auditLog(r, "set_role", "membership", targetID.String(), "org_id", orgID.String(), "role", string(req.Role))
	writeJSON(w, http.StatusOK, updated)
}

// Remove handles DELETE /api/v1/organizations/{id}/members/{userID}.
func (h *membersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	targetID, ok := parseUUIDParam(r, "userID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "user id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	requester, err := requireMembership(r.Context(), h.store, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}

	target, err := h.store.Lookup(r.Context(), orgID, targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve membership")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "not_found", "membership not found")
		return
	}

	if err := authz.AuthorizeMemberRemoval(requester.Role, target.Role); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	removed, err := h.store.Unlink(r.Context(), orgID, targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to remove member")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", "membership not found")
		return
	}

	auditLog(r, "remove_member", "membership", targetID.String(), "org_id", orgID.String())
	w.WriteHeader(http.StatusNoContent)
}
