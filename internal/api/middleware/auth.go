package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// Context key for the authenticated principal.
type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated user attached to a request.
type Principal struct {
	UserID   string
	Username string
	Role     models.Role
}

// SessionLookup resolves a signed-in web session from a request.
type SessionLookup func(r *http.Request) (Principal, bool)

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
}

// jsonForbidden writes a forbidden error response.
func jsonForbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", "access denied")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = WithPrincipal(ctx, Principal{UserID: claims.UserID, Username: claims.Username, Role: claims.Role})
	return auth.ContextWithClaims(ctx, claims)
}

// JWTAuth returns middleware that validates JWT tokens.
func JWTAuth(jwtService *auth.JWTService, logger *zap.Logger) func(http.Handler) http.Handler {
	return JWTOrSessionAuth(jwtService, nil, logger)
}

// JWTOrSessionAuth returns middleware that accepts a Bearer token or, for
// safe methods only, a web session cookie.
func JWTOrSessionAuth(jwtService *auth.JWTService, sessions SessionLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				claims, err := jwtService.ValidateToken(token)
				if err != nil {
					logger.Debug("JWT auth failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
					jsonUnauthorized(w)
					return
				}
				next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
				return
			}

			// Cookie-authenticated writes would bypass CSRF protection.
			safe := r.Method == http.MethodGet || r.Method == http.MethodHead
			if sessions != nil && safe {
				if p, ok := sessions(r); ok {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}

			jsonUnauthorized(w)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated user from context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserID returns the user ID from context.
func GetUserID(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}

// GetUsername returns the username from context.
func GetUsername(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.Username
}

// GetRole returns the user role from context.
func GetRole(ctx context.Context) models.Role {
	p, _ := GetPrincipal(ctx)
	return p.Role
}

// GetCaller returns the authenticated user as a tracker caller.
func GetCaller(ctx context.Context) tracker.Caller {
	p, _ := GetPrincipal(ctx)
	return tracker.Caller{UserID: p.UserID, Username: p.Username, Role: p.Role}
}

// GetClaims returns the JWT claims from context.
func GetClaims(ctx context.Context) *auth.Claims {
	return auth.ClaimsFromContext(ctx)
}
