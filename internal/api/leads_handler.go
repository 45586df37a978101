package api

import (
	"net/http"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/authz"
	"github.com/alecgard/courtier/internal/lead"
	"github.com/alecgard/courtier/internal/metrics"
	"github.com/alecgard/courtier/internal/org"
	"github.com/google/uuid"
)

// leadsHandler groups lead HTTP handlers.
type leadsHandler struct {
	store   *lead.Store
	orgs    *org.Store
	metrics *metrics.Metrics
}

func newLeadsHandler(store *lead.Store, orgs *org.Store, m *metrics.Metrics) *leadsHandler {
	return &leadsHandler{store: store, orgs: orgs, metrics: m}
}

// checkAssignee verifies a prospective assignee holds a membership in the
// organization. Returns false after writing a 422 when they do not.
func (h *leadsHandler) checkAssignee(w http.ResponseWriter, r *http.Request, orgID, assigneeID uuid.UUID) bool {
	m, err := h.orgs.Lookup(r.Context(), orgID, assigneeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve assignee")
		return false
	}
	if m == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "assigned user is not a member of this organization")
		return false
	}
	return true
}

// Create handles POST /api/v1/organizations/{id}/leads.
func (h *leadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionCreateLead); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	var req lead.CreateInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name is required")
		return
	}
	if req.Status.Set && req.Status.Valid && !req.Status.Value.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be one of new, contacted, qualified, lost, won")
		return
	}
	if req.AssignedTo.Set && req.AssignedTo.Valid {
		if err := authz.Authorize(m.Role, authz.ActionAssignLead); err != nil {
			writeDomainError(w, err, "failed to authorize")
			return
		}
		if !h.checkAssignee(w, r, orgID, req.AssignedTo.Value) {
			return
		}
	}

	l, err := h.store.Create(r.Context(), orgID, req, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to create lead")
		return
	}

	if h.metrics != nil {
		h.metrics.LeadsCreatedTotal.Inc()
	}
	auditLog(r, "create", "lead", l.ID.String(), "org_id", orgID.String())
	writeJSON(w, http.StatusCreated, l)
}

// List handles GET /api/v1/organizations/{id}/leads.
func (h *leadsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	if _, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID); err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}

	var params lead.ListParams
	params.Skip, params.Limit = parsePagination(r, "skip", "limit", 100)

	if v := r.URL.Query().Get("status"); v != "" {
		s := lead.Status(v)
		if !s.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be one of new, contacted, qualified, lost, won")
			return
		}
		params.Status = s
	}
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "assigned_to must be a UUID")
			return
		}
		params.AssignedTo = id
	}

	leads, err := h.store.List(r.Context(), orgID, params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list leads")
		return
	}
	if leads == nil {
		leads = []*lead.Lead{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
	})
}

// Get handles GET /api/v1/organizations/{id}/leads/{leadID}.
func (h *leadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	leadID, ok := parseUUIDParam(r, "leadID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "lead id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	if _, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID); err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}

	l, err := h.store.GetByID(r.Context(), leadID, orgID)
	if err != nil {
		writeDomainError(w, err, "failed to get lead")
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// Patch handles PATCH /api/v1/organizations/{id}/leads/{leadID}.
func (h *leadsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	leadID, ok := parseUUIDParam(r, "leadID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "lead id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionUpdateLead); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	var p lead.Patch
	if err := readJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if p.Name.Set && (!p.Name.Valid || p.Name.Value == "") {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name cannot be empty or null")
		return
	}
	if p.Status.Set {
		if !p.Status.Valid || !p.Status.Value.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be one of new, contacted, qualified, lost, won")
			return
		}
	}

	current, err := h.store.GetByID(r.Context(), leadID, orgID)
	if err != nil {
		writeDomainError(w, err, "failed to get lead")
		return
	}

	// Echoing the stored assignee is not a reassignment; only an actual
	// change needs the elevated permission.
	if p.ChangesAssignee(current.AssignedTo) {
		if err := authz.Authorize(m.Role, authz.ActionAssignLead); err != nil {
			writeDomainError(w, err, "failed to authorize")
			return
		}
		if p.AssignedTo.Valid && !h.checkAssignee(w, r, orgID, p.AssignedTo.Value) {
			return
		}
	}

	updated, err := h.store.Update(r.Context(), current, p, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to update lead")
		return
	}

	if h.metrics != nil && updated.Status != current.Status {
		h.metrics.LeadStatusChangesTotal.WithLabelValues(string(updated.Status)).Inc()
	}
	auditLog(r, "update", "lead", leadID.String(), "org_id", orgID.String())
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/organizations/{id}/leads/{leadID}.
func (h *leadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	leadID, ok := parseUUIDParam(r, "leadID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "lead id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	m, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID)
	if err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}
	if err := authz.Authorize(m.Role, authz.ActionDeleteLead); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return
	}

	deleted, err := h.store.Delete(r.Context(), leadID, orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete lead")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not_found", "lead not found")
		return
	}

	auditLog(r, "delete", "lead", leadID.String(), "org_id", orgID.String())
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/v1/organizations/{id}/leads/{leadID}/history.
func (h *leadsHandler) History(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseUUIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "organization id must be a UUID")
		return
	}
	leadID, ok := parseUUIDParam(r, "leadID")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "lead id must be a UUID")
		return
	}
	caller := auth.UserFromContext(r.Context())

	if _, err := requireMembership(r.Context(), h.orgs, orgID, caller.ID); err != nil {
		writeDomainError(w, err, "failed to resolve membership")
		return
	}

	// Scope check: the lead must belong to this organization.
	if _, err := h.store.GetByID(r.Context(), leadID, orgID); err != nil {
		writeDomainError(w, err, "failed to get lead")
		return
	}

	entries, err := h.store.History(r.Context(), leadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list history")
		return
	}
	if entries == nil {
		entries = []*lead.History{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
	})
}
