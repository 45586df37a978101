package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alecgard/courtier/internal/user"
)

type contextKey int

const userContextKey contextKey = iota

// ContextWithUser returns a new context carrying the given user.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext extracts the user from the context, or nil if not present.
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// UserResolver turns a verified token subject back into a full account.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Middleware returns middleware that authenticates requests using a bearer
// session token. The token is verified, the subject is resolved to a user,
// and the user is injected into the request context. Missing, invalid, or
// expired tokens are rejected with 401 before the handler runs.
func Middleware(tokens *Tokens, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			email, _, err := tokens.VerifySession(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			u, err := users.GetByEmail(r.Context(), email)
			if err != nil || u == nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := ContextWithUser(r.Context(), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "unauthorized",
			Message: message,
		},
	})
}
