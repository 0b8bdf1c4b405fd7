// Package handlers serves the HTML screens of the web UI.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/internal/web/session"
	"github.com/good-yellow-bee/projtrack/internal/web/templates/pages"
)

// Handler renders the web UI pages.
type Handler struct {
	service        *tracker.Service
	sessions       *session.Store
	lockoutTracker *auth.LockoutTracker
	basePath       string
	logger         *zap.Logger
}

// NewHandler creates a web handler. basePath is where the UI is mounted.
func NewHandler(svc *tracker.Service, sessions *session.Store, lockout *auth.LockoutTracker, basePath string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        svc,
		sessions:       sessions,
		lockoutTracker: lockout,
		basePath:       basePath,
		logger:         logger,
	}
}

// Helper to get session from context
type contextKey string

const SessionContextKey contextKey = "session"

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, sess)
}

// GetSession returns the signed-in session, or nil.
func GetSession(r *http.Request) *session.Session {
	if s, ok := r.Context().Value(SessionContextKey).(*session.Session); ok {
		return s
	}
	return nil
}

func callerFromSession(sess *session.Session) tracker.Caller {
	return tracker.Caller{UserID: sess.UserID, Username: sess.Username, Role: sess.Role}
}

// layout builds the shared page data. It may set cookies, so call it
// before writing the status line.
func (h *Handler) layout(w http.ResponseWriter, r *http.Request, title string) pages.Layout {
	l := pages.Layout{
		Base:      h.basePath,
		Title:     title,
		Nonce:     middleware.GetCSPNonce(r.Context()),
		CSRFField: csrf.TemplateField(r),
		Flashes:   h.sessions.Flashes(w, r),
	}
	if sess := GetSession(r); sess != nil {
		l.Viewer = &pages.Viewer{Username: sess.Username, Role: sess.Role, CanEdit: sess.CanEdit()}
	}
	return l
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("render page", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.basePath+path, http.StatusSeeOther)
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, message string) {
	if err := h.sessions.AddFlash(w, r, message); err != nil {
		h.logger.Warn("save flash", zap.Error(err))
	}
}

// statusFor maps a tracker error to an HTTP status and a message fit for the page.
func (h *Handler) statusFor(op string, err error) (int, string) {
	switch {
	case errors.Is(err, tracker.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tracker.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, tracker.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, tracker.ErrForbidden):
		return http.StatusForbidden, err.Error()
	}
	h.logger.Error(op+" error", zap.Error(err))
	return http.StatusInternalServerError, "Something went wrong, please try again"
}

// RequireSession redirects to the login page unless a valid session cookie
// is present, and attaches the session to the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.sessions.Get(r)
		if !ok {
			h.redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
