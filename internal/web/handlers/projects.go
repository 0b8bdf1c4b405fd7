package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
	"github.com/good-yellow-bee/projtrack/internal/web/templates/pages"
)

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitles(r.Context())
	l := h.layout(w, r, "Projects")
	if err != nil {
		status, message := h.statusFor("list projects", err)
		l.Error = message
		h.render(w, r, status, pages.Projects(pages.ProjectsPage{Layout: l}))
		return
	}

	sortField := r.URL.Query().Get("sort")
	desc := r.URL.Query().Get("order") == "desc"
	if err := models.SortTitles(titles, sortField, desc); err != nil {
		l.Error = err.Error()
		sortField, desc = "", false
	}

	h.render(w, r, http.StatusOK, pages.Projects(pages.ProjectsPage{
		Layout: l,
		Titles: titles,
		Sort:   sortField,
		Desc:   desc,
	}))
}

func (h *Handler) NewProject(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pages.ProjectNew(pages.ProjectNewPage{
		Layout: h.layout(w, r, "New project"),
		Form:   pages.ProjectForm{Status: string(models.StatusOngoing)},
	}))
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderNewProject(w, r, http.StatusBadRequest, pages.ProjectForm{}, "Invalid form data")
		return
	}
	form := readProjectForm(r)

	in, err := projectInput(form)
	if err != nil {
		h.renderNewProject(w, r, http.StatusBadRequest, form, err.Error())
		return
	}

	project, err := h.service.CreateProject(r.Context(), callerFromSession(GetSession(r)), in)
	if err != nil {
		status, message := h.statusFor("create project", err)
		h.renderNewProject(w, r, status, form, message)
		return
	}

	h.flash(w, r, "Project created successfully")
	h.redirect(w, r, "/projects/"+project.ID)
}

func (h *Handler) renderNewProject(w http.ResponseWriter, r *http.Request, status int, form pages.ProjectForm, message string) {
	l := h.layout(w, r, "New project")
	l.Error = message
	h.render(w, r, status, pages.ProjectNew(pages.ProjectNewPage{Layout: l, Form: form}))
}

// ShowProject renders a project read-only, or as an edit form with ?edit=1
// for roles that can edit.
func (h *Handler) ShowProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Project(r.Context(), chi.URLParam(r, "id"))
	l := h.layout(w, r, "Project")
	if err != nil {
		status, message := h.statusFor("get project", err)
		l.Error = message
		h.render(w, r, status, pages.Projects(pages.ProjectsPage{Layout: l}))
		return
	}
	l.Title = project.Title

	editing := r.URL.Query().Get("edit") == "1" && GetSession(r).CanEdit()
	h.render(w, r, http.StatusOK, pages.Project(pages.ProjectPage{
		Layout:  l,
		Project: project,
		Form:    formFromProject(project),
		Editing: editing,
	}))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := GetSession(r)
	if !sess.CanEdit() {
		h.renderProjectError(w, r, id, http.StatusForbidden, pages.ProjectForm{}, "Only admins and managers can edit projects")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderProjectError(w, r, id, http.StatusBadRequest, pages.ProjectForm{}, "Invalid form data")
		return
	}
	form := readProjectForm(r)

	in, err := projectInput(form)
	if err != nil {
		h.renderProjectError(w, r, id, http.StatusBadRequest, form, err.Error())
		return
	}

	patch := tracker.ProjectPatch{
		Title:       &in.Title,
		Description: &in.Description,
		TaskList:    &in.TaskList,
		AssignDate:  &in.AssignDate,
		DueDate:     &in.DueDate,
		StartDate:   &in.StartDate,
		EndDate:     &in.EndDate,
	}
	if in.UserID != "" {
		patch.UserID = &in.UserID
	}
	if in.Status != "" {
		patch.Status = &in.Status
	}

	if _, err := h.service.UpdateProject(r.Context(), callerFromSession(sess), id, patch); err != nil {
		status, message := h.statusFor("update project", err)
		h.renderProjectError(w, r, id, status, form, message)
		return
	}

	h.flash(w, r, "Project updated successfully")
	h.redirect(w, r, "/projects/"+id)
}

// renderProjectError re-renders the edit form over the last stored snapshot.
func (h *Handler) renderProjectError(w http.ResponseWriter, r *http.Request, id string, status int, form pages.ProjectForm, message string) {
	project, err := h.service.Project(r.Context(), id)
	l := h.layout(w, r, "Project")
	l.Error = message
	if err != nil {
		if status < http.StatusInternalServerError {
			status, _ = h.statusFor("get project", err)
		}
		h.render(w, r, status, pages.Projects(pages.ProjectsPage{Layout: l}))
		return
	}
	l.Title = project.Title
	if form.Title == "" && form.Description == "" {
		form = formFromProject(project)
	}
	h.render(w, r, status, pages.Project(pages.ProjectPage{
		Layout:  l,
		Project: project,
		Form:    form,
		Editing: GetSession(r).CanEdit(),
	}))
}

func (h *Handler) ShowTitles(w http.ResponseWriter, r *http.Request) {
	l := h.layout(w, r, "Edit titles")
	if !GetSession(r).CanEdit() {
		l.Error = "Only admins and managers can edit projects"
		h.render(w, r, http.StatusForbidden, pages.Titles(pages.TitlesPage{Layout: l}))
		return
	}

	titles, err := h.service.ListTitles(r.Context())
	if err != nil {
		status, message := h.statusFor("list projects", err)
		l.Error = message
		h.render(w, r, status, pages.Titles(pages.TitlesPage{Layout: l}))
		return
	}
	_ = models.SortTitles(titles, "title", false)

	rows := make([]pages.TitleRow, len(titles))
	for i, t := range titles {
		rows[i] = pages.TitleRow{ID: t.ID, Title: t.Title, Status: string(t.Status)}
	}
	h.render(w, r, http.StatusOK, pages.Titles(pages.TitlesPage{Layout: l, Rows: rows}))
}

func (h *Handler) UpdateTitles(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r)
	if err := r.ParseForm(); err != nil {
		l := h.layout(w, r, "Edit titles")
		l.Error = "Invalid form data"
		h.render(w, r, http.StatusBadRequest, pages.Titles(pages.TitlesPage{Layout: l}))
		return
	}

	ids, titles, statuses := r.PostForm["id"], r.PostForm["title"], r.PostForm["status"]
	if len(titles) != len(ids) || len(statuses) != len(ids) {
		l := h.layout(w, r, "Edit titles")
		l.Error = "Each row needs an id, a title and a status"
		h.render(w, r, http.StatusBadRequest, pages.Titles(pages.TitlesPage{Layout: l}))
		return
	}

	updates := make([]models.TitleUpdate, len(ids))
	rows := make([]pages.TitleRow, len(ids))
	for i := range ids {
		updates[i] = models.TitleUpdate{ID: ids[i], Title: titles[i], Status: models.ProjectStatus(statuses[i])}
		rows[i] = pages.TitleRow{ID: ids[i], Title: titles[i], Status: statuses[i]}
	}

	result, err := h.service.UpdateTitles(r.Context(), callerFromSession(sess), updates)
	l := h.layout(w, r, "Edit titles")
	if err != nil {
		status, message := h.statusFor("update titles", err)
		l.Error = message
		h.render(w, r, status, pages.Titles(pages.TitlesPage{Layout: l, Rows: rows}))
		return
	}

	for i, res := range result.Results {
		rows[i].Outcome = string(res.Outcome)
		rows[i].Message = res.Message
	}
	h.render(w, r, http.StatusOK, pages.Titles(pages.TitlesPage{
		Layout:  l,
		Rows:    rows,
		Summary: fmt.Sprintf("%d updated, %d failed", result.Updated, result.Failed),
	}))
}

func readProjectForm(r *http.Request) pages.ProjectForm {
	form := pages.ProjectForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		UserID:      strings.TrimSpace(r.PostFormValue("userId")),
		AssignDate:  r.PostFormValue("assignDate"),
		DueDate:     r.PostFormValue("dueDate"),
		StartDate:   r.PostFormValue("startDate"),
		EndDate:     r.PostFormValue("endDate"),
		Status:      r.PostFormValue("status"),
	}
	// Blank task rows are dropped.
	for _, t := range r.PostForm["task"] {
		if t = strings.TrimSpace(t); t != "" {
			form.Tasks = append(form.Tasks, t)
		}
	}
	return form
}

func formFromProject(p *models.Project) pages.ProjectForm {
	form := pages.ProjectForm{
		Title:       p.Title,
		Description: p.Description,
		UserID:      p.UserID,
		AssignDate:  p.AssignDate.String(),
		DueDate:     p.DueDate.String(),
		StartDate:   p.StartDate.String(),
		EndDate:     p.EndDate.String(),
		Status:      string(p.Status),
	}
	for _, t := range p.TaskList {
		form.Tasks = append(form.Tasks, t.Task)
	}
	return form
}

func parseFormDate(name, value string) (models.Date, error) {
	if strings.TrimSpace(value) == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
	}
	return d, nil
}

func projectInput(form pages.ProjectForm) (tracker.ProjectInput, error) {
	in := tracker.ProjectInput{
		Title:       form.Title,
		Description: form.Description,
		UserID:      form.UserID,
		Status:      models.ProjectStatus(form.Status),
		TaskList:    make([]models.Task, 0, len(form.Tasks)),
	}
	for _, t := range form.Tasks {
		in.TaskList = append(in.TaskList, models.Task{Task: t})
	}

	dates := []struct {
		name  string
		value string
		dst   *models.Date
	}{
		{"assignDate", form.AssignDate, &in.AssignDate},
		{"dueDate", form.DueDate, &in.DueDate},
		{"startDate", form.StartDate, &in.StartDate},
		{"endDate", form.EndDate, &in.EndDate},
	}
	for _, d := range dates {
		parsed, err := parseFormDate(d.name, d.value)
		if err != nil {
			return in, err
		}
		*d.dst = parsed
	}
	return in, nil
}
