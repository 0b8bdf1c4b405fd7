package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/internal/web/templates/pages"
)

func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	// Check if already logged in
	if _, ok := h.sessions.Get(r); ok {
		h.redirect(w, r, "/projects")
		return
	}
	h.render(w, r, http.StatusOK, pages.Login(pages.LoginPage{Layout: h.layout(w, r, "Log in")}))
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, http.StatusBadRequest, "", "Invalid form data")
		return
	}

	identifier := strings.TrimSpace(r.FormValue("identifier"))
	password := r.FormValue("password")

	if identifier == "" || password == "" {
		h.renderLoginError(w, r, http.StatusBadRequest, identifier, "Username/email and password are required")
		return
	}

	// Check if account is locked out
	if h.lockoutTracker != nil && h.lockoutTracker.IsLocked(identifier) {
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		h.renderLoginError(w, r, http.StatusTooManyRequests, identifier, "Account temporarily locked due to too many failed attempts")
		return
	}

	user, err := h.service.Authenticate(r.Context(), identifier, password)
	if err != nil {
		status, message := h.statusFor("web login", err)
		if errors.Is(err, tracker.ErrNotFound) || errors.Is(err, tracker.ErrUnauthorized) {
			if h.lockoutTracker != nil {
				h.lockoutTracker.RecordFailure(identifier)
			}
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			h.logger.Info("web login failed", zap.String("identifier", identifier), zap.String("reason", message))
		}
		h.renderLoginError(w, r, status, identifier, message)
		return
	}

	// Clear any failed attempts on successful login
	if h.lockoutTracker != nil {
		h.lockoutTracker.ClearFailures(identifier)
	}

	if err := h.sessions.Create(w, r, user); err != nil {
		h.logger.Error("create web session", zap.Error(err))
		h.renderLoginError(w, r, http.StatusInternalServerError, identifier, "Failed to create session")
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	h.logger.Info("web login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	h.redirect(w, r, "/projects")
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(w, r); err != nil {
		h.logger.Warn("clear web session", zap.Error(err))
	}
	h.redirect(w, r, "/login")
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, status int, identifier, message string) {
	l := h.layout(w, r, "Log in")
	l.Error = message
	h.render(w, r, status, pages.Login(pages.LoginPage{Layout: l, Identifier: identifier}))
}

func (h *Handler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pages.Signup(pages.SignupPage{Layout: h.layout(w, r, "Sign up")}))
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	page := pages.SignupPage{}
	if err := r.ParseForm(); err != nil {
		page.Layout = h.layout(w, r, "Sign up")
		page.Error = "Invalid form data"
		h.render(w, r, http.StatusBadRequest, pages.Signup(page))
		return
	}

	in := tracker.SignupInput{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		Role:            r.FormValue("role"),
	}
	if _, err := h.service.Signup(r.Context(), in); err != nil {
		status, message := h.statusFor("web signup", err)
		page.Layout = h.layout(w, r, "Sign up")
		page.Error = message
		page.Username, page.Email, page.Role = in.Username, in.Email, in.Role
		h.render(w, r, status, pages.Signup(page))
		return
	}

	h.flash(w, r, "Account created. Please log in.")
	h.redirect(w, r, "/login")
}
