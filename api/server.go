/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile app webview
  5. Auth:       Bearer token verification on user-facing routes
                 (no-op when no JWT secret is configured)

ROUTE GROUPS:
  /api/scans            Scan submission
  /api/users/*          Ledger reads and user management
  /api/redemptions      Reward redemption
  /api/catalog/*        Public catalog reads
  /api/admin/*          Catalog management
  /api/auth/*           Token issuing (dev)
  /api/scenarios/*      Demo scenarios (dev only)

SECURITY NOTE:
  Admin and scenario routes are not separately authorized yet; deploy
  them behind a private network or gateway policy.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	auth := AuthMiddleware(h.JWTSecret)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Scan submission
		r.With(auth).Post("/scans", h.PostScan)

		// Redemption
		r.With(auth).Post("/redemptions", h.PostRedemption)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Get("/{id}", h.GetUser)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Get("/{id}/balance", h.GetBalance)
				r.Get("/{id}/transactions", h.GetTransactions)
				r.Get("/{id}/achievements", h.GetAchievements)
				r.Get("/{id}/stats", h.GetStats)
			})
		})

		// Public catalog reads
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/rewards", h.ListRewards)
			r.Get("/badges", h.ListBadges)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/products", h.ListProducts)
			r.Post("/products", h.SaveProduct)
			r.Post("/badges", h.SaveBadge)
			r.Post("/rewards", h.SaveReward)
		})

		// Auth routes
		r.Post("/auth/token", h.IssueToken)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
