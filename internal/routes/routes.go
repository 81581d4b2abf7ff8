package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/projectflow/loginguard/internal/auth"
	"github.com/projectflow/loginguard/internal/handlers"
	"github.com/projectflow/loginguard/internal/middleware"
	"github.com/projectflow/loginguard/pkg/ratelimit"
)

// Dependencies collects everything the router needs.
// AuthHandler and ServiceRole are optional; their routes are skipped when nil.
type Dependencies struct {
	LoginAttemptHandler *handlers.LoginAttemptHandler
	AuthHandler         *handlers.AuthHandler
	HealthHandler       *handlers.HealthHandler
	ServiceRole         *auth.ServiceRoleVerifier
	IPRateLimit         middleware.RateLimitConfig
	AttemptLimiter      *ratelimit.Limiter
	AttemptLimit        middleware.AttemptLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.Get("/health", deps.HealthHandler.Health)

	// Lockout resource used by the login form
	router.With(middleware.RateLimitByIP(deps.IPRateLimit)).Post("/login-attempt", deps.LoginAttemptHandler.Handle)

	// Ledger maintenance, service role only
	if deps.ServiceRole != nil {
		router.With(auth.RequireServiceRole(deps.ServiceRole)).Delete("/login-attempt", deps.LoginAttemptHandler.Cleanup)
	}

	if deps.AuthHandler != nil {
		router.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitAttempts(deps.AttemptLimiter, deps.AttemptLimit))
			r.Post("/login", deps.AuthHandler.Login)
			r.Post("/reset-password", deps.AuthHandler.ResetPassword)
			r.Post("/signup", deps.AuthHandler.SignUp)
		})
	}
}
