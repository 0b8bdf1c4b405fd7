package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/web/session"
)

func newTestHandler() *Handler {
	return NewHandler(nil, session.NewStore("test-secret", time.Hour, false), nil, "/ui", nil)
}

func TestShowLogin_Success(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("GET", "/ui/login", nil)
	rec := httptest.NewRecorder()

	h.ShowLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Sign in to ProjTrack") {
		t.Error("response body missing login title")
	}
}

func TestHandleLogin_MissingCredentials(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest("POST", "/ui/login", strings.NewReader("identifier=&password="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.HandleLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Username/email and password are required") {
		t.Error("response body missing validation message")
	}
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	h := newTestHandler()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h.RequireSession(next).ServeHTTP(rec, httptest.NewRequest("GET", "/ui/projects", nil))

	if called {
		t.Error("next handler should not run without a session")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/ui/login" {
		t.Errorf("got %d to %q, want redirect to /ui/login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRequireSession_AttachesSession(t *testing.T) {
	h := newTestHandler()
	user := models.NewUser("alice", "a@x.com", models.RoleManager)
	user.ID = "u1"

	login := httptest.NewRecorder()
	if err := h.sessions.Create(login, httptest.NewRequest("POST", "/ui/login", nil), user); err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest("GET", "/ui/projects", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}

	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := GetSession(r); sess != nil {
			got = sess.Username
		}
	})
	h.RequireSession(next).ServeHTTP(httptest.NewRecorder(), req)

	if got != "alice" {
		t.Errorf("session username = %q, want alice", got)
	}
}

func TestReadProjectForm_DropsBlankTasks(t *testing.T) {
	form := url.Values{
		"title":      {"  T1 "},
		"task":       {"one", "   ", "", "two "},
		"assignDate": {"2024-01-01"},
		"status":     {"pending"},
	}
	req := httptest.NewRequest("POST", "/ui/projects", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := req.ParseForm(); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := readProjectForm(req)
	if got.Title != "T1" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Tasks) != 2 || got.Tasks[0] != "one" || got.Tasks[1] != "two" {
		t.Errorf("tasks = %q", got.Tasks)
	}

	in, err := projectInput(got)
	if err != nil {
		t.Fatalf("project input: %v", err)
	}
	if in.AssignDate.String() != "2024-01-01" || !in.DueDate.IsZero() || in.Status != models.StatusPending {
		t.Errorf("input = %+v", in)
	}
	if len(in.TaskList) != 2 {
		t.Errorf("task list = %+v", in.TaskList)
	}

	got.EndDate = "31/01/2024"
	if _, err := projectInput(got); err == nil || !strings.Contains(err.Error(), "endDate") {
		t.Errorf("bad date error = %v", err)
	}
}
