// Package projects provides the project endpoints.
package projects

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/middleware"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// Response helpers (local to avoid import cycle with api package)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeForbidden        = "FORBIDDEN"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// CreatedResponse is returned when a project is created.
type CreatedResponse struct {
	Message string          `json:"message"`
	Project *models.Project `json:"project"`
}

// Handler serves the project endpoints.
type Handler struct {
	service *tracker.Service
	logger  *zap.Logger
}

// NewHandler creates a new projects handler.
func NewHandler(svc *tracker.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tracker.ErrValidation):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	case errors.Is(err, tracker.ErrConflict):
		jsonError(w, http.StatusConflict, errCodeConflict, err.Error())
	case errors.Is(err, tracker.ErrNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, tracker.ErrForbidden):
		jsonError(w, http.StatusForbidden, errCodeForbidden, err.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
	}
}

// Create stores a new project.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req tracker.ProjectInput
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	project, err := h.service.CreateProject(r.Context(), middleware.GetCaller(r.Context()), req)
	if err != nil {
		h.serviceError(w, "create project", err)
		return
	}

	jsonData(w, http.StatusCreated, &CreatedResponse{
		Message: "Project created successfully",
		Project: project,
	})
}

// ListTitles returns every project projected to title, dates and status.
func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitles(r.Context())
	if err != nil {
		h.serviceError(w, "list project titles", err)
		return
	}
	jsonData(w, http.StatusOK, titles)
}

// GetByID returns the full project.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Project(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, "get project", err)
		return
	}
	jsonData(w, http.StatusOK, project)
}

// Update applies the given fields to a project.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var patch tracker.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	project, err := h.service.UpdateProject(ctx, middleware.GetCaller(ctx), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.serviceError(w, "update project", err)
		return
	}
	jsonData(w, http.StatusOK, project)
}

// UpdateTitles applies a batch of title/status updates and reports each item.
// Responds 200 when every item was applied and 207 otherwise.
func (h *Handler) UpdateTitles(w http.ResponseWriter, r *http.Request) {
	var req BatchTitlesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	result, err := h.service.UpdateTitles(ctx, middleware.GetCaller(ctx), req.Updates())
	if err != nil {
		h.serviceError(w, "update project titles", err)
		return
	}

	status := http.StatusOK
	if !result.AllUpdated() {
		status = http.StatusMultiStatus
	}
	jsonData(w, status, result)
}
