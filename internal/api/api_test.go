package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// testServer creates a test server backed by a temporary SQLite file.
func testServer(t *testing.T, tweak func(*Config)) *Server {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"), nil)
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate storage: %v", err)
	}

	cfg := &Config{
		Address:          ":0",
		JWTSecret:        []byte("test-jwt-secret-32-bytes-long!!"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
		LoginRateLimit:   600,
		LoginRateBurst:   100,
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
		WebUIEnabled:     true,
		SessionSecret:    "test-session-secret",
		CSRFSecret:       "test-csrf-secret",
	}
	if tweak != nil {
		tweak(cfg)
	}

	svc := tracker.NewService(store, nil, tracker.WithBcryptCost(bcrypt.MinCost))
	srv, err := New(cfg, svc, nil)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

func call(t *testing.T, srv *Server, method, path, token string, body any) (int, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, resp
}

type loginData struct {
	Role         models.Role `json:"role"`
	UserID       string      `json:"userId"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
}

func signupAndLogin(t *testing.T, srv *Server, username, email string, role models.Role) loginData {
	t.Helper()

	status, resp := call(t, srv, "POST", "/api/signup", "", map[string]string{
		"username": username, "email": email, "password": "Abcdef1",
		"confirmPassword": "Abcdef1", "role": string(role),
	})
	if status != http.StatusCreated {
		t.Fatalf("signup %s = %d: %+v", username, status, resp.Error)
	}

	status, resp = call(t, srv, "POST", "/api/login", "", map[string]string{"email": email, "password": "Abcdef1"})
	if status != http.StatusOK {
		t.Fatalf("login %s = %d: %+v", username, status, resp.Error)
	}
	var data loginData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return data
}

func projectPayload(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "d",
		"taskList":    []map[string]string{{"task": "one"}},
		"assignDate":  "2024-01-01",
		"dueDate":     "2024-02-01",
		"startDate":   "2024-01-02",
		"endDate":     "2024-01-31",
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t, nil)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestSignupLoginAndProjects(t *testing.T) {
	srv := testServer(t, nil)

	alice := signupAndLogin(t, srv, "alice", "a@x.com", models.RoleManager)
	if alice.Role != models.RoleManager || alice.AccessToken == "" || alice.RefreshToken == "" || alice.TokenType != "Bearer" {
		t.Fatalf("login response = %+v", alice)
	}

	status, resp := call(t, srv, "POST", "/api/signup", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "Abcdef1",
		"confirmPassword": "Abcdef1", "role": "manager",
	})
	if status != http.StatusConflict || resp.Error.Message != "Username or email already exists" {
		t.Errorf("duplicate signup = %d %+v", status, resp.Error)
	}

	if status, _ := call(t, srv, "POST", "/demo", "", projectPayload("T1")); status != http.StatusUnauthorized {
		t.Errorf("create without token = %d, want 401", status)
	}

	status, resp = call(t, srv, "POST", "/demo", alice.AccessToken, projectPayload("T1"))
	if status != http.StatusCreated {
		t.Fatalf("create = %d: %+v", status, resp.Error)
	}
	var created struct {
		Message string          `json:"message"`
		Project *models.Project `json:"project"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if created.Project.UserID != "alice" || created.Message != "Project created successfully" {
		t.Errorf("created = %+v", created)
	}

	if status, _ := call(t, srv, "POST", "/demo", alice.AccessToken, projectPayload("T1")); status != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", status)
	}

	status, resp = call(t, srv, "GET", "/project-titles", alice.AccessToken, nil)
	var titles []models.ProjectTitle
	if err := json.Unmarshal(resp.Data, &titles); err != nil || status != http.StatusOK || len(titles) != 1 {
		t.Fatalf("titles = %d %s", status, resp.Data)
	}

	id := created.Project.ID
	if status, _ := call(t, srv, "GET", "/projects/"+id, alice.AccessToken, nil); status != http.StatusOK {
		t.Errorf("get = %d", status)
	}
	if status, _ := call(t, srv, "GET", "/projects/missing", alice.AccessToken, nil); status != http.StatusNotFound {
		t.Errorf("get missing = %d", status)
	}

	status, _ = call(t, srv, "PUT", "/projects/"+id, alice.AccessToken, map[string]any{"status": "complete"})
	if status != http.StatusOK {
		t.Errorf("manager update = %d", status)
	}

	status, resp = call(t, srv, "PUT", "/project-titles", alice.AccessToken, map[string]any{
		"titles": []map[string]string{
			{"id": id, "title": "T2", "status": "pending"},
			{"id": "missing", "title": "X", "status": "pending"},
		},
	})
	if status != http.StatusMultiStatus {
		t.Errorf("partial batch = %d, want 207", status)
	}
	var batch tracker.BatchResult
	if err := json.Unmarshal(resp.Data, &batch); err != nil || batch.Updated != 1 || batch.Failed != 1 {
		t.Errorf("batch = %+v, %v", batch, err)
	}

	// Read-only roles can read and create but not edit.
	ivan := signupAndLogin(t, srv, "ivan", "i@x.com", models.RoleIntern)
	if status, _ := call(t, srv, "GET", "/projects/"+id, ivan.AccessToken, nil); status != http.StatusOK {
		t.Errorf("intern get = %d", status)
	}
	if status, _ := call(t, srv, "PUT", "/projects/"+id, ivan.AccessToken, map[string]any{"title": "Hijack"}); status != http.StatusForbidden {
		t.Errorf("intern update = %d, want 403", status)
	}
	status, _ = call(t, srv, "PUT", "/project-titles", ivan.AccessToken, map[string]any{
		"titles": []map[string]string{{"id": id, "title": "Hijack", "status": "pending"}},
	})
	if status != http.StatusForbidden {
		t.Errorf("intern batch = %d, want 403", status)
	}
	if status, _ := call(t, srv, "POST", "/demo", ivan.AccessToken, projectPayload("T1")); status != http.StatusCreated {
		t.Errorf("intern create of same title for own user = %d, want 201", status)
	}
}

func TestLogin_Errors(t *testing.T) {
	srv := testServer(t, func(c *Config) { c.LockoutThreshold = 2 })
	signupAndLogin(t, srv, "alice", "a@x.com", models.RoleAdmin)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"email": "a@x.com"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"email": "nobody@x.com", "password": "Abcdef1"}, http.StatusNotFound},
		{"wrong password by username", map[string]string{"username": "alice", "password": "Wrong123"}, http.StatusUnauthorized},
		{"wrong password by email", map[string]string{"email": "a@x.com", "password": "Wrong123"}, http.StatusUnauthorized},
		{"second wrong password by email", map[string]string{"email": "a@x.com", "password": "Wrong123"}, http.StatusUnauthorized},
		{"locked", map[string]string{"email": "A@X.com", "password": "Abcdef1"}, http.StatusTooManyRequests},
	}
	for _, tc := range tests {
		status, resp := call(t, srv, "POST", "/api/login", "", tc.body)
		if status != tc.status {
			t.Errorf("%s: status = %d, want %d (%+v)", tc.name, status, tc.status, resp.Error)
		}
	}
}

func TestRefreshAndLogout(t *testing.T) {
	srv := testServer(t, nil)
	alice := signupAndLogin(t, srv, "alice", "a@x.com", models.RoleEmployee)

	status, resp := call(t, srv, "POST", "/api/refresh", "", map[string]string{"refresh_token": alice.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh = %d: %+v", status, resp.Error)
	}
	var rotated loginData
	if err := json.Unmarshal(resp.Data, &rotated); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if rotated.RefreshToken == alice.RefreshToken || rotated.Role != models.RoleEmployee {
		t.Errorf("refresh should rotate the token, got %+v", rotated)
	}

	if status, _ := call(t, srv, "POST", "/api/refresh", "", map[string]string{"refresh_token": alice.RefreshToken}); status != http.StatusUnauthorized {
		t.Errorf("reused refresh token = %d, want 401", status)
	}

	status, resp = call(t, srv, "GET", "/api/me", rotated.AccessToken, nil)
	if status != http.StatusOK || !strings.Contains(string(resp.Data), `"canEdit":false`) {
		t.Errorf("me = %d %s", status, resp.Data)
	}

	if status, _ := call(t, srv, "POST", "/api/logout", rotated.AccessToken, map[string]string{"refresh_token": rotated.RefreshToken}); status != http.StatusNoContent {
		t.Errorf("logout = %d, want 204", status)
	}
	if status, _ := call(t, srv, "POST", "/api/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken}); status != http.StatusUnauthorized {
		t.Errorf("refresh after logout = %d, want 401", status)
	}
}

func TestLogoutAll_RequiresOwnRefreshToken(t *testing.T) {
	srv := testServer(t, nil)
	alice := signupAndLogin(t, srv, "alice", "a@x.com", models.RoleManager)
	mallory := signupAndLogin(t, srv, "mallory", "m@x.com", models.RoleEmployee)

	body := map[string]any{"refresh_token": alice.RefreshToken, "all": true}
	status, resp := call(t, srv, "POST", "/api/logout", mallory.AccessToken, body)
	if status != http.StatusForbidden || resp.Error == nil || resp.Error.Code != "FORBIDDEN" {
		t.Fatalf("logout all with another account's token = %d %+v, want 403", status, resp.Error)
	}
	if status, _ := call(t, srv, "POST", "/api/refresh", "", map[string]string{"refresh_token": alice.RefreshToken}); status != http.StatusOK {
		t.Errorf("victim refresh after rejected logout = %d, want 200", status)
	}

	body = map[string]any{"refresh_token": mallory.RefreshToken, "all": true}
	if status, _ := call(t, srv, "POST", "/api/logout", mallory.AccessToken, body); status != http.StatusNoContent {
		t.Errorf("logout all with own token = %d, want 204", status)
	}
}

func TestAuth_RejectsOversizedBody(t *testing.T) {
	srv := testServer(t, nil)
	huge := strings.Repeat("x", 2<<20)

	for _, path := range []string{"/api/signup", "/api/login"} {
		status, resp := call(t, srv, "POST", path, "", map[string]string{"username": huge, "password": "Abcdef1"})
		if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "BAD_REQUEST" {
			t.Errorf("%s oversized body = %d %+v, want 400 BAD_REQUEST", path, status, resp.Error)
		}
	}
}

func TestUsersList_AdminOnly(t *testing.T) {
	srv := testServer(t, nil)
	admin := signupAndLogin(t, srv, "root", "root@x.com", models.RoleAdmin)
	manager := signupAndLogin(t, srv, "alice", "a@x.com", models.RoleManager)

	if status, _ := call(t, srv, "GET", "/api/users", manager.AccessToken, nil); status != http.StatusForbidden {
		t.Errorf("manager list users = %d, want 403", status)
	}
	status, resp := call(t, srv, "GET", "/api/users", admin.AccessToken, nil)
	if status != http.StatusOK || strings.Contains(string(resp.Data), "password") {
		t.Errorf("admin list users = %d %s", status, resp.Data)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := testServer(t, func(c *Config) {
		c.LoginRateLimit = 1
		c.LoginRateBurst = 2
	})

	body := map[string]string{"email": "nobody@x.com", "password": "Abcdef1"}
	for i := 0; i < 2; i++ {
		if status, _ := call(t, srv, "POST", "/api/login", "", body); status == http.StatusTooManyRequests {
			t.Fatalf("attempt %d rate limited too early", i+1)
		}
	}
	status, resp := call(t, srv, "POST", "/api/login", "", body)
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != "RATE_LIMITED" {
		t.Errorf("third attempt = %d %+v, want 429 RATE_LIMITED", status, resp.Error)
	}
}

func TestRouting_NotFoundAndWebUI(t *testing.T) {
	srv := testServer(t, nil)

	status, resp := call(t, srv, "GET", "/nope", "", nil)
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != CodeNotFound {
		t.Errorf("unknown route = %d %+v", status, resp.Error)
	}

	req := httptest.NewRequest("GET", "/ui/login", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sign in to ProjTrack") {
		t.Errorf("web login = %d", rec.Code)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "nonce-") {
		t.Errorf("CSP header = %q, want a script nonce", csp)
	}

	status, _ = call(t, srv, "GET", "/api/version", "", nil)
	if status != http.StatusOK {
		t.Errorf("version = %d", status)
	}
}

func TestNew_RequiresSecrets(t *testing.T) {
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "x.db"), nil)
	svc := tracker.NewService(store, nil)

	if _, err := New(&Config{}, svc, nil); err == nil {
		t.Error("expected error without JWT secret")
	}
	if _, err := New(&Config{JWTSecret: []byte("k"), WebUIEnabled: true}, svc, nil); err == nil {
		t.Error("expected error when the web UI lacks secrets")
	}
	if _, err := New(&Config{JWTSecret: []byte("k")}, nil, nil); err == nil {
		t.Error("expected error without a service")
	}
}
