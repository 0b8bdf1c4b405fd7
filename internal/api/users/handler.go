// Package users serves account lookups: the caller's own profile and the
// admin listing.
package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// envelope mirrors api.Response; this package cannot import api.
type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CanEdit   bool        `json:"canEdit"`
	CreatedAt string      `json:"created_at"`
}

// newUserResponse projects u to its public view.
func newUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CanEdit:   u.CanEdit(),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Handler serves /api/me and /api/users.
type Handler struct {
	service *tracker.Service
	logger  *zap.Logger
}

// NewHandler returns a handler backed by svc.
func NewHandler(svc *tracker.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, tracker.ErrNotFound) {
		write(w, http.StatusNotFound, envelope{Error: &errorBody{Code: "NOT_FOUND", Message: err.Error()}})
		return
	}
	h.logger.Error(op, zap.Error(err))
	write(w, http.StatusInternalServerError, envelope{Error: &errorBody{Code: "INTERNAL_ERROR", Message: "Internal server error"}})
}

// List returns every account. Mounted behind RequireRole(admin).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.Users(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	out := make([]*UserResponse, 0, len(all))
	for _, u := range all {
		out = append(out, newUserResponse(u))
	}
	write(w, http.StatusOK, envelope{Data: out})
}

// GetCurrentUser returns the caller's account. A token for a deleted account
// yields 404.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, "get current user", err)
		return
	}
	write(w, http.StatusOK, envelope{Data: newUserResponse(user)})
}
