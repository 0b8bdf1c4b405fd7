// Package pages renders the server-side HTML screens of the web UI.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

//go:embed html/*.html
var htmlFS embed.FS

var funcs = template.FuncMap{
	"statuses": func() []models.ProjectStatus {
		return []models.ProjectStatus{models.StatusOngoing, models.StatusPending, models.StatusComplete}
	},
	"roles": func() []models.Role { return models.Roles },
}

var pageTemplates = map[string]*template.Template{}

func init() {
	for _, name := range []string{"login", "signup", "projects", "project_new", "project", "titles"} {
		pageTemplates[name] = template.Must(
			template.New(name).Funcs(funcs).ParseFS(htmlFS, "html/layout.html", "html/form.html", "html/"+name+".html"))
	}
}

// Viewer is the signed-in user as the layout shows it.
type Viewer struct {
	Username string
	Role     models.Role
	CanEdit  bool
}

// Layout carries what every page needs.
type Layout struct {
	Base      string
	Title     string
	Nonce     string
	CSRFField template.HTML
	Viewer    *Viewer
	Flashes   []string
	Error     string
}

// LoginPage is the sign-in form.
type LoginPage struct {
	Layout
	Identifier string
}

// SignupPage is the account registration form.
type SignupPage struct {
	Layout
	Username string
	Email    string
	Role     string
}

// ProjectsPage lists project titles with the current sort.
type ProjectsPage struct {
	Layout
	Titles []*models.ProjectTitle
	Sort   string
	Desc   bool
}

// SortLink returns the query for a column header: it toggles the order when
// the column is already the sort key.
func (p ProjectsPage) SortLink(field string) string {
	order := "asc"
	if p.Sort == field && !p.Desc {
		order = "desc"
	}
	return fmt.Sprintf("?sort=%s&order=%s", field, order)
}

// SortMark returns an arrow for the active sort column.
func (p ProjectsPage) SortMark(field string) string {
	if p.Sort != field {
		return ""
	}
	if p.Desc {
		return "▼"
	}
	return "▲"
}

// ProjectForm holds the raw values of the new project form.
type ProjectForm struct {
	Title       string
	Description string
	Tasks       []string
	UserID      string
	AssignDate  string
	DueDate     string
	StartDate   string
	EndDate     string
	Status      string
}

// ProjectNewPage is the create project form.
type ProjectNewPage struct {
	Layout
	Form ProjectForm
}

// ProjectPage shows one project, as read-only fields or as an edit form.
type ProjectPage struct {
	Layout
	Project *models.Project
	Form    ProjectForm
	Editing bool
}

// TitleRow is one row of the batch title editor.
type TitleRow struct {
	ID      string
	Title   string
	Status  string
	Outcome string
	Message string
}

// TitlesPage is the batch title and status editor.
type TitlesPage struct {
	Layout
	Rows    []TitleRow
	Summary string
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pageTemplates[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

// Login renders the sign-in page.
func Login(p LoginPage) templ.Component { return render("login", p) }

// Signup renders the registration page.
func Signup(p SignupPage) templ.Component { return render("signup", p) }

// Projects renders the project list.
func Projects(p ProjectsPage) templ.Component { return render("projects", p) }

// ProjectNew renders the create project form.
func ProjectNew(p ProjectNewPage) templ.Component { return render("project_new", p) }

// Project renders a project's detail page.
func Project(p ProjectPage) templ.Component { return render("project", p) }

// Titles renders the batch title editor.
func Titles(p TitlesPage) templ.Component { return render("titles", p) }
