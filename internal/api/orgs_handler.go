package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/authz"
	"github.com/alecgard/courtier/internal/metrics"
	"github.com/alecgard/courtier/internal/org"
	"github.com/google/uuid"
)

// orgsHandler groups organization and invitation HTTP handlers.
type orgsHandler struct {
	store   *org.Store
	inviter *org.Inviter
	metrics *metrics.Metrics
}

func newOrgsHandler(store *org.Store, inviter *org.Inviter, m *metrics.Metrics) *orgsHandler {
	return &orgsHandler{store: store, inviter: inviter, metrics: m}
}

// requireMembership resolves the caller's membership in an organization.
// A missing row maps to ErrNotAMember, the access-boundary denial.
func requireMembership(ctx context.Context, store *org.Store, orgID, userID uuid.UUID) (*org.Membership, error) {
	m, err := store.Lookup(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, authz.ErrNotAMember
	}
	return m, nil
}

// Create handles POST /api/v1/organizations. The creator becomes Owner.
func (h *orgsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req org.CreateOrgInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name is required")
		return
	}

	o, err := h.store.Create(r.Context(), req, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to create organization")
		return
	}

	auditLog(r, "create", "organization", o.ID.String())
	writeJSON(w, http.StatusCreated, o)
}

// List handles GET /api/v1/organizations.
func (h *orgsHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePagination(r, "skip", "limit", 100)

	orgs, err := h.store.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list organizations")
		return
	}
	if orgs == nil {
		orgs = []*org.Organization{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
	})
}

// Get handles GET /api/v1/organizations/{id}.
func (h *orgsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}

	o, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get organization")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// Update handles PUT /api/v1/organizations/{id} (Owner or Admin).
func (h *orgsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.store, id, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionUpdateOrg); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	var req org.UpdateOrgInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name cannot be empty")
		return
	}

	o, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err, "failed to update organization")
		return
	}

	auditLog(r, "update", "organization", o.ID.String())
	writeJSON(w, http.StatusOK, o)
}

// Delete handles DELETE /api/v1/organizations/{id} (Owner only).
func (h *orgsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.store, id, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionDeleteOrg); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete organization")
		return
	}

	auditLog(r, "delete", "organization", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// Invite handles POST /api/v1/organizations/{id}/invite (Owner or Admin).
func (h *orgsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.store, id, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionInviteMembers); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	// The organization must exist; an invite for a deleted org would verify
	// but never link.
	if _, err := h.store.GetByID(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to get organization")
		return
	}

	// An empty body means the default TTL. ContentLength is unreliable for
	// chunked requests, so decode and treat EOF as no body.
	var req struct {
		ExpiresInMinutes int `json:"expires_in_minutes"`
	}
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	inv, err := h.inviter.Invite(id, time.Duration(req.ExpiresInMinutes)*time.Minute)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue invitation")
		return
	}

	if h.metrics != nil {
		h.metrics.InvitationsIssuedTotal.Inc()
	}
	auditLog(r, "invite", "organization", id.String())
	writeJSON(w, http.StatusOK, inv)
}

// Join handles POST /api/v1/organizations/join.
func (h *orgsHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "token is required")
		return
	}

	res, err := h.inviter.Join(r.Context(), req.Token, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to join organization")
		return
	}

	if h.metrics != nil && !res.AlreadyMember {
		h.metrics.InvitationsAcceptedTotal.Inc()
	}
	auditLog(r, "join", "organization", res.OrgID.String(), "already_member", res.AlreadyMember)
	writeJSON(w, http.StatusOK, res)
}
