package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
)

// Routes returns the UI router. Mount it at the configured base path.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	// Plain HTTP requests skip the Referer check csrf applies to TLS.
	r.Use(markPlaintext)
	r.Use(csrf.Protect(
		s.csrfKey,
		csrf.Secure(s.useSecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailure)),
	))

	// Public routes
	r.Get("/login", s.handler.ShowLogin)
	r.Post("/login", s.handler.HandleLogin)
	r.Get("/signup", s.handler.ShowSignup)
	r.Post("/signup", s.handler.HandleSignup)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.handler.RequireSession)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.basePath+"/projects", http.StatusFound)
		})
		r.Post("/logout", s.handler.HandleLogout)

		r.Get("/projects", s.handler.ListProjects)
		r.Get("/projects/new", s.handler.NewProject)
		r.Post("/projects", s.handler.CreateProject)
		r.Get("/projects/{id}", s.handler.ShowProject)
		r.Post("/projects/{id}", s.handler.UpdateProject)

		r.Get("/titles", s.handler.ShowTitles)
		r.Post("/titles", s.handler.UpdateTitles)
	})

	return r
}

func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !middleware.IsRequestSecure(r) {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("csrf check failed",
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.Error(csrf.FailureReason(r)))
	http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
}
