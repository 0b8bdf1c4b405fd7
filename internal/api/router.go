package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/api/projects"
	"github.com/good-yellow-bee/projtrack/internal/api/users"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger, s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	authHandler := auth.NewHandler(s.service, s.jwtService, s.tokenService, s.lockoutTracker, s.logger)
	projectHandler := projects.NewHandler(s.service, s.logger)
	userHandler := users.NewHandler(s.service, s.logger)

	var sessionLookup middleware.SessionLookup
	if s.web != nil {
		sessionLookup = s.web.SessionLookup()
	}
	requireAuth := middleware.JWTOrSessionAuth(s.jwtService, sessionLookup, s.logger)

	r.Route("/api", func(r chi.Router) {
		// Public routes with IP rate limiting
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(s.loginLimiter))
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})
		r.Post("/refresh", authHandler.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(s.jwtService, s.logger))
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", userHandler.GetCurrentUser)

			// Admin-only endpoints
			r.With(middleware.RequireRole(models.RoleAdmin)).Get("/users", userHandler.List)
		})

		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			OK(w, config.GetBuildInfo())
		})
	})

	// Project routes keep the paths existing clients call.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/demo", projectHandler.Create)
		r.Get("/project-titles", projectHandler.ListTitles)
		r.Get("/projects/{id}", projectHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireEditor)
			r.Put("/project-titles", projectHandler.UpdateTitles)
			r.Put("/projects/{id}", projectHandler.Update)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	if s.web != nil {
		r.Mount(s.config.WebBasePath, s.web.Routes())
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.config.WebBasePath+"/projects", http.StatusFound)
		})
	}

	return r
}
