package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/projtrack/internal/api/auth"
	"github.com/good-yellow-bee/projtrack/internal/models"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!")

func issue(t *testing.T, svc *auth.JWTService, role models.Role) string {
	t.Helper()
	token, err := svc.GenerateToken(&models.User{ID: "user-123", Username: "testuser", Role: role})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func mustNotRun(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, 15*time.Minute)
	token := issue(t, jwtService, models.RoleManager)

	var got Principal
	var claims *auth.Claims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetPrincipal(r.Context())
		claims = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	JWTAuth(jwtService, nil)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	want := Principal{UserID: "user-123", Username: "testuser", Role: models.RoleManager}
	if got != want {
		t.Errorf("principal = %+v, want %+v", got, want)
	}
	if claims == nil || claims.Subject != "user-123" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTAuth_Rejected(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, 15*time.Minute)
	other := auth.NewJWTService([]byte("another-secret-32-bytes-long!!!"), 15*time.Minute)
	expired := auth.NewJWTService(testSecret, -time.Minute)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"invalid format", "NotBearer token"},
		{"invalid token", "Bearer invalid-token"},
		{"empty bearer", "Bearer "},
		{"foreign secret", "Bearer " + issue(t, other, models.RoleAdmin)},
		{"expired", "Bearer " + issue(t, expired, models.RoleAdmin)},
	}

	wrapped := JWTAuth(jwtService, nil)(mustNotRun(t))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestJWTOrSessionAuth_Session(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, 15*time.Minute)
	sessions := func(r *http.Request) (Principal, bool) {
		if c, err := r.Cookie("s"); err == nil && c.Value == "ok" {
			return Principal{UserID: "u9", Username: "web", Role: models.RoleIntern}, true
		}
		return Principal{}, false
	}

	var got Principal
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetPrincipal(r.Context())
	})

	tests := []struct {
		name   string
		method string
		cookie string
		want   int
	}{
		{"get with session", http.MethodGet, "ok", http.StatusOK},
		{"get with bad session", http.MethodGet, "nope", http.StatusUnauthorized},
		{"put with session", http.MethodPut, "ok", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got = Principal{}
			req := httptest.NewRequest(tc.method, "/test", nil)
			req.AddCookie(&http.Cookie{Name: "s", Value: tc.cookie})
			rec := httptest.NewRecorder()
			JWTOrSessionAuth(jwtService, sessions, nil)(ok).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusOK && got.Username != "web" {
				t.Errorf("principal = %+v", got)
			}
		})
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := httptest.NewRequest("GET", "/test", nil).Context()

	if got := GetUserID(ctx); got != "" {
		t.Errorf("GetUserID() = %q, want empty", got)
	}
	if got := GetUsername(ctx); got != "" {
		t.Errorf("GetUsername() = %q, want empty", got)
	}
	if got := GetRole(ctx); got != "" {
		t.Errorf("GetRole() = %q, want empty", got)
	}
	if got := GetClaims(ctx); got != nil {
		t.Errorf("GetClaims() = %v, want nil", got)
	}
	if caller := GetCaller(ctx); caller.Role.CanEdit() {
		t.Errorf("anonymous caller should not edit")
	}
}
