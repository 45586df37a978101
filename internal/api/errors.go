package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alecgard/courtier/internal/authz"
	"github.com/alecgard/courtier/internal/org"
	"github.com/alecgard/courtier/internal/user"
	"github.com/jackc/pgx/v5"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeDomainError maps domain sentinel errors onto the error envelope.
// Unknown errors become 500 with a generic message so internals never leak.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var fe *authz.ForbiddenError
	switch {
	case errors.Is(err, authz.ErrNotAMember):
		writeError(w, http.StatusForbidden, "not_a_member", "not a member of this organization")
	case errors.As(err, &fe):
		writeError(w, http.StatusForbidden, "forbidden", fe.Reason)
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, org.ErrInvalidInvitation):
		writeError(w, http.StatusBadRequest, "invalid_invitation", "invalid or expired invitation token")
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, "conflict", "email is already registered")
	case errors.Is(err, user.ErrUserReferenced):
		writeError(w, http.StatusConflict, "conflict", "user has recorded activity and cannot be deleted")
	case errors.Is(err, org.ErrNameTaken):
		writeError(w, http.StatusConflict, "conflict", "organization name is already taken")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
