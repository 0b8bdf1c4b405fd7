package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// Handler handles authentication endpoints.
type Handler struct {
	service        *tracker.Service
	jwtService     *JWTService
	tokenService   *TokenService
	lockoutTracker *LockoutTracker
	logger         *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(svc *tracker.Service, jwt *JWTService, tokens *TokenService, lockout *LockoutTracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        svc,
		jwtService:     jwt,
		tokenService:   tokens,
		lockoutTracker: lockout,
		logger:         logger,
	}
}

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

func (h *Handler) jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

func (h *Handler) jsonData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

// serviceError maps a tracker error onto the error envelope.
func (h *Handler) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tracker.ErrValidation):
		h.jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	case errors.Is(err, tracker.ErrConflict):
		h.jsonError(w, http.StatusConflict, errCodeConflict, err.Error())
	case errors.Is(err, tracker.ErrNotFound):
		h.jsonError(w, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, tracker.ErrUnauthorized):
		h.jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, err.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
	}
}

// Error codes
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeUnauthorized     = "UNAUTHORIZED"
	errCodeForbidden        = "FORBIDDEN"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeAccountLocked    = "ACCOUNT_LOCKED"
	errCodeInternalError    = "INTERNAL_ERROR"
)

// LoginRequest is the request body for login. The identifier may be sent
// as email or username and is matched against both.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identifier returns the login identifier, preferring email.
func (r *LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// LoginResponse is returned on successful login and refresh.
type LoginResponse struct {
	Role         models.Role `json:"role"`
	UserID       string      `json:"userId"`
	Username     string      `json:"username"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	TokenType    string      `json:"token_type"`
}

// SignupResponse is returned on successful signup.
type SignupResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the request body for logout. All revokes every refresh
// token of the account that owns RefreshToken.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all,omitempty"`
}

// maxBodyBytes caps auth request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// Signup handles account registration.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req tracker.SignupInput
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.serviceError(w, "signup", err)
		return
	}

	h.jsonData(w, http.StatusCreated, &SignupResponse{
		Message: "User created successfully",
		User:    user,
	})
}

// Login handles user login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	identifier := req.Identifier()

	if identifier != "" && h.lockoutTracker.IsLocked(identifier) {
		metrics.AuthAttemptsTotal.WithLabelValues("locked").Inc()
		h.logger.Warn("login blocked: account locked",
			zap.String("identifier", identifier),
			zap.Duration("remaining", h.lockoutTracker.RemainingLockoutTime(identifier)))
		h.jsonError(w, http.StatusTooManyRequests, errCodeAccountLocked, "account temporarily locked due to too many failed attempts")
		return
	}

	ctx := r.Context()
	user, err := h.service.Authenticate(ctx, identifier, req.Password)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) || errors.Is(err, tracker.ErrUnauthorized) {
			h.lockoutTracker.RecordFailure(identifier)
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			h.logger.Info("login failed", zap.String("identifier", identifier), zap.String("reason", err.Error()))
		}
		h.serviceError(w, "login", err)
		return
	}

	h.lockoutTracker.ClearFailures(identifier)

	resp, err := h.issueTokens(r, user)
	if err != nil {
		h.logger.Error("login error: issue tokens", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	h.logger.Info("login success", zap.String("username", user.Username))
	h.jsonData(w, http.StatusOK, resp)
}

func (h *Handler) issueTokens(r *http.Request, user *models.User) (*LoginResponse, error) {
	accessToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	metrics.AuthTokensIssued.WithLabelValues("access").Inc()

	refreshToken, err := h.tokenService.CreateRefreshToken(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Role:         user.Role,
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.jwtService.TTLSeconds(),
		TokenType:    "Bearer",
	}, nil
}

// Refresh handles token refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "refresh_token required")
		return
	}

	ctx := r.Context()
	user, err := h.tokenService.ValidateRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrInvalidRefreshToken) {
			h.logger.Error("refresh error", zap.Error(err))
			h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
			return
		}
		h.jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
		return
	}

	newRefreshToken, err := h.tokenService.RotateRefreshToken(ctx, req.RefreshToken, user.ID)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		h.jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
		return
	case err != nil:
		h.logger.Error("refresh error: rotate refresh token", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
		return
	}

	accessToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		h.logger.Error("refresh error: generate access token", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
		return
	}
	metrics.AuthTokensIssued.WithLabelValues("access").Inc()

	h.logger.Debug("token refresh success", zap.String("username", user.Username))
	h.jsonData(w, http.StatusOK, &LoginResponse{
		Role:         user.Role,
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    h.jwtService.TTLSeconds(),
		TokenType:    "Bearer",
	})
}

// Logout revokes the given refresh token. Access tokens expire on their own.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "refresh_token required")
		return
	}

	if req.All {
		user, err := h.tokenService.ValidateRefreshToken(r.Context(), req.RefreshToken)
		if err == nil {
			if claims := ClaimsFromContext(r.Context()); claims == nil || claims.UserID != user.ID {
				h.jsonError(w, http.StatusForbidden, errCodeForbidden, "refresh token belongs to another account")
				return
			}
			if err := h.tokenService.RevokeAllForUser(r.Context(), user.ID); err != nil {
				h.logger.Error("logout: revoke all tokens", zap.String("user_id", user.ID), zap.Error(err))
				h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "Internal server error")
				return
			}
			h.logger.Info("all sessions revoked", zap.String("username", user.Username))
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if err := h.tokenService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		// token may already be gone
		h.logger.Warn("logout: revoke token", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}
