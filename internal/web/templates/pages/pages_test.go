package pages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

func TestProjects_SortLinksAndRows(t *testing.T) {
	page := ProjectsPage{
		Layout: Layout{Base: "/ui", Title: "Projects", Viewer: &Viewer{Username: "alice", Role: models.RoleIntern}},
		Titles: []*models.ProjectTitle{
			{ID: "p1", Title: "Apollo", AssignDate: models.NewDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), Status: models.StatusPending},
		},
		Sort: "title",
	}

	var b strings.Builder
	if err := Projects(page).Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := b.String()

	for _, want := range []string{
		`href="/ui/projects/p1"`,
		"Apollo",
		"2024-01-02",
		"sort=title&amp;order=desc",
		"sort=status&amp;order=asc",
		"▲",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "/ui/titles") {
		t.Error("read-only viewer should not see the title editor link")
	}
}

func TestProject_EditControlsFollowRole(t *testing.T) {
	project := models.NewProject("Apollo", "moon", "alice")
	project.ID = "p1"
	project.TaskList = []models.Task{{Task: "launch"}}

	tests := []struct {
		name     string
		viewer   *Viewer
		wantEdit bool
	}{
		{"manager", &Viewer{Username: "m", Role: models.RoleManager, CanEdit: true}, true},
		{"employee", &Viewer{Username: "e", Role: models.RoleEmployee}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			err := Project(ProjectPage{
				Layout:  Layout{Base: "/ui", Title: project.Title, Viewer: tc.viewer},
				Project: project,
			}).Render(context.Background(), &b)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			body := b.String()
			if !strings.Contains(body, "launch") {
				t.Error("task list should be shown")
			}
			if got := strings.Contains(body, "?edit=1"); got != tc.wantEdit {
				t.Errorf("edit link shown = %v, want %v", got, tc.wantEdit)
			}
		})
	}
}

func TestProjectNew_TaskScriptCarriesNonce(t *testing.T) {
	var b strings.Builder
	err := ProjectNew(ProjectNewPage{
		Layout: Layout{Base: "/ui", Title: "New project", Nonce: "abc123", Error: "title is required"},
		Form:   ProjectForm{Tasks: []string{"one", "two"}, Status: "pending"},
	}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := b.String()

	if !strings.Contains(body, `<script nonce="abc123">`) {
		t.Error("script should carry the CSP nonce")
	}
	if strings.Count(body, `name="task"`) != 2 {
		t.Errorf("expected one input per task, got %d", strings.Count(body, `name="task"`))
	}
	if !strings.Contains(body, `<option value="pending" selected>`) {
		t.Error("current status should be selected")
	}
	if !strings.Contains(body, "title is required") {
		t.Error("error message should be shown")
	}
}

func TestLoginAndSignup_Render(t *testing.T) {
	var b strings.Builder
	if err := Login(LoginPage{Layout: Layout{Base: "/ui", Title: "Log in"}, Identifier: "alice"}).Render(context.Background(), &b); err != nil {
		t.Fatalf("render login: %v", err)
	}
	if !strings.Contains(b.String(), "Sign in to ProjTrack") || !strings.Contains(b.String(), `value="alice"`) {
		t.Error("login page missing title or identifier")
	}

	b.Reset()
	if err := Signup(SignupPage{Layout: Layout{Base: "/ui", Title: "Sign up"}, Role: "intern"}).Render(context.Background(), &b); err != nil {
		t.Fatalf("render signup: %v", err)
	}
	if !strings.Contains(b.String(), `<option value="intern" selected>`) {
		t.Error("chosen role should stay selected")
	}
}

func TestTitles_ShowsOutcomes(t *testing.T) {
	var b strings.Builder
	err := Titles(TitlesPage{
		Layout:  Layout{Base: "/ui", Title: "Edit titles"},
		Summary: "1 updated, 1 failed",
		Rows: []TitleRow{
			{ID: "a", Title: "A", Status: "ongoing", Outcome: "updated"},
			{ID: "b", Title: "B", Status: "pending", Outcome: "conflict", Message: "Project title already exists for this user"},
		},
	}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := b.String()
	for _, want := range []string{"1 updated, 1 failed", `class="outcome-conflict"`, "Project title already exists for this user", `name="id" value="b"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
