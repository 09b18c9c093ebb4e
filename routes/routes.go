package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llmgate/llmgate/app"
	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.Config.Server.RequestTimeout))
	if deps.Config.Observability.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TenantHeader},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Register and login stay public; the handler throttles them
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.HandleRegister)
			r.Post("/login", deps.AuthHandler.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Post("/logout", deps.AuthHandler.HandleLogout)
			})
		})

		// Own-tenant management
		r.Route("/tenant", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireTenantHeader)
			r.Get("/", deps.TenantHandler.HandleGetTenant)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireScope(models.ScopeAdmin))
				r.Put("/", deps.TenantHandler.HandleUpdateTenant)
			})
		})

		// User management
		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			// Token-only introspection, no tenant header needed
			r.Get("/me", deps.UserHandler.HandleCurrentUser)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireTenantHeader)

				// Self or admin, checked in the handler
				r.Get("/{id}", deps.UserHandler.HandleGetUser)

				r.Group(func(r chi.Router) {
					r.Use(deps.AuthMiddleware.RequireScope(models.ScopeAdmin))
					r.Get("/", deps.UserHandler.HandleListUsers)
					r.Post("/", deps.UserHandler.HandleCreateUser)
					r.Put("/{id}", deps.UserHandler.HandleUpdateUser)
				})
			})
		})

		// Session lookup; the handler masks other tenants' sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireScope(models.ScopeAdmin))
			r.Get("/{id}", deps.SessionHandler.HandleGetSession)
		})

		// Audit trail
		r.Route("/audit", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireTenantHeader)
			r.Use(deps.AuthMiddleware.RequireScope(models.ScopeAdmin))
			r.Get("/events", deps.AuditHandler.HandleListEvents)
		})

		// Inference proxy
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireTenantHeader)
			r.Post("/chat", deps.ChatHandler.HandleChat)
			r.Get("/models", deps.ChatHandler.HandleListModels)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
