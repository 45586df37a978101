package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/lead"
	"github.com/alecgard/courtier/internal/metrics"
	"github.com/alecgard/courtier/internal/org"
	"github.com/alecgard/courtier/internal/ratelimit"
	"github.com/alecgard/courtier/internal/user"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users          *user.Store
	Orgs           *org.Store
	Leads          *lead.Store
	Tokens         *auth.Tokens
	Inviter        *org.Inviter
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(metricsMiddleware(deps.Metrics))
	r.Use(slogRequestLogger)

	// Handlers.
	authH := newAuthHandler(deps.Users, deps.Tokens, deps.Metrics)
	users := newUsersHandler(deps.Users)
	orgs := newOrgsHandler(deps.Orgs, deps.Inviter, deps.Metrics)
	members := newMembersHandler(deps.Orgs)
	leads := newLeadsHandler(deps.Leads, deps.Orgs, deps.Metrics)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics summary.
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		// Public routes. Login is rate limited: it accepts credentials.
		v1.Group(func(pr chi.Router) {
			pr.With(ratelimit.Middleware(deps.Limiter)).Post("/auth/login", authH.Login)
			pr.Post("/users", users.Register)
		})

		// Authenticated routes.
		v1.Group(func(ar chi.Router) {
			ar.Use(auth.Middleware(deps.Tokens, deps.Users))

			ar.Get("/users", users.List)
			ar.Get("/users/me", users.Me)
			ar.Get("/users/{id}", users.Get)
			ar.Put("/users/{id}", users.Update)
			ar.Delete("/users/{id}", users.Delete)

			ar.Post("/organizations", orgs.Create)
			ar.Get("/organizations", orgs.List)
			ar.With(ratelimit.Middleware(deps.Limiter)).Post("/organizations/join", orgs.Join)
			ar.Get("/organizations/{id}", orgs.Get)
			ar.Put("/organizations/{id}", orgs.Update)
			ar.Delete("/organizations/{id}", orgs.Delete)
			ar.Post("/organizations/{id}/invite", orgs.Invite)

			ar.Get("/organizations/{id}/members", members.List)
			ar.Put("/organizations/{id}/members/{userID}", members.SetRole)
			ar.Delete("/organizations/{id}/members/{userID}", members.Remove)

			ar.Post("/organizations/{id}/leads", leads.Create)
			ar.Get("/organizations/{id}/leads", leads.List)
			ar.Get("/organizations/{id}/leads/{leadID}", leads.Get)
			ar.Patch("/organizations/{id}/leads/{leadID}", leads.Patch)
			ar.Delete("/organizations/{id}/leads/{leadID}", leads.Delete)
			ar.Get("/organizations/{id}/leads/{leadID}/history", leads.History)
		})
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
