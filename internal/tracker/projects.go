package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

const duplicateTitleMessage = "Project title already exists for this user"

// Caller identifies the authenticated user performing an operation.
type Caller struct {
	UserID   string
	Username string
	Role     models.Role
}

// CallerFromUser builds a Caller from a stored user.
func CallerFromUser(u *models.User) Caller {
	return Caller{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// ProjectInput holds the fields of a new project.
type ProjectInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	TaskList    []models.Task        `json:"taskList"`
	UserID      string               `json:"userId"`
	AssignDate  models.Date          `json:"assignDate"`
	DueDate     models.Date          `json:"dueDate"`
	StartDate   models.Date          `json:"startDate"`
	EndDate     models.Date          `json:"endDate"`
	Status      models.ProjectStatus `json:"status"`
}

// ProjectPatch holds the fields of an update. Nil fields are left unchanged.
type ProjectPatch struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	TaskList    *[]models.Task        `json:"taskList"`
	UserID      *string               `json:"userId"`
	AssignDate  *models.Date          `json:"assignDate"`
	DueDate     *models.Date          `json:"dueDate"`
	StartDate   *models.Date          `json:"startDate"`
	EndDate     *models.Date          `json:"endDate"`
	Status      *models.ProjectStatus `json:"status"`
}

// Empty reports whether the patch changes nothing.
func (p *ProjectPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.TaskList == nil && p.UserID == nil &&
		p.AssignDate == nil && p.DueDate == nil && p.StartDate == nil && p.EndDate == nil &&
		p.Status == nil
}

// Apply copies the set fields onto project.
func (p *ProjectPatch) Apply(project *models.Project) {
	if p.Title != nil {
		project.Title = *p.Title
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.TaskList != nil {
		project.TaskList = append([]models.Task{}, (*p.TaskList)...)
	}
	if p.UserID != nil {
		project.UserID = *p.UserID
	}
	if p.AssignDate != nil {
		project.AssignDate = *p.AssignDate
	}
	if p.DueDate != nil {
		project.DueDate = *p.DueDate
	}
	if p.StartDate != nil {
		project.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		project.EndDate = *p.EndDate
	}
	if p.Status != nil {
		project.Status = *p.Status
	}
}

// CreateProject validates and stores a new project. An empty userId
// defaults to the caller's username.
func (s *Service) CreateProject(ctx context.Context, caller Caller, in ProjectInput) (*models.Project, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = caller.Username
	}

	project := models.NewProject(strings.TrimSpace(in.Title), strings.TrimSpace(in.Description), userID)
	if in.TaskList != nil {
		project.TaskList = in.TaskList
	}
	project.AssignDate = in.AssignDate
	project.DueDate = in.DueDate
	project.StartDate = in.StartDate
	project.EndDate = in.EndDate
	if in.Status != "" {
		project.Status = in.Status
	}

	if err := validateProject(project); err != nil {
		metrics.ProjectMutationsTotal.WithLabelValues("create", "invalid").Inc()
		return nil, err
	}

	// The unique index still guards against a concurrent insert.
	existing, err := s.store.Projects().GetByTitle(ctx, project.Title, project.UserID)
	if err != nil {
		metrics.ProjectMutationsTotal.WithLabelValues("create", "error").Inc()
		s.storageError("get_project_by_title", err)
		return nil, fmt.Errorf("check project title: %w", err)
	}
	if existing != nil {
		metrics.ProjectMutationsTotal.WithLabelValues("create", "conflict").Inc()
		return nil, conflictError(duplicateTitleMessage)
	}

	if err := s.store.Projects().Create(ctx, project); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			metrics.ProjectMutationsTotal.WithLabelValues("create", "conflict").Inc()
			return nil, conflictError(duplicateTitleMessage)
		}
		metrics.ProjectMutationsTotal.WithLabelValues("create", "error").Inc()
		s.storageError("create_project", err)
		return nil, fmt.Errorf("create project: %w", err)
	}

	metrics.ProjectMutationsTotal.WithLabelValues("create", "ok").Inc()
	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("title", project.Title),
		zap.String("user_id", project.UserID),
		zap.String("by", caller.Username))
	return project, nil
}

// ListTitles returns every project projected to its title fields.
func (s *Service) ListTitles(ctx context.Context) ([]*models.ProjectTitle, error) {
	titles, err := s.store.Projects().ListTitles(ctx)
	if err != nil {
		s.storageError("list_titles", err)
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	return titles, nil
}

// Project returns the full project with the given id.
func (s *Service) Project(ctx context.Context, id string) (*models.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, notFoundError("Project not found")
	}
	project, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		s.storageError("get_project", err)
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, notFoundError("Project not found")
	}
	return project, nil
}

// UpdateProject applies patch to the project and returns the stored result.
// Only roles that can edit may update.
func (s *Service) UpdateProject(ctx context.Context, caller Caller, id string, patch ProjectPatch) (*models.Project, error) {
	if !caller.Role.CanEdit() {
		return nil, &Error{Kind: ErrForbidden, Message: "Only admins and managers can edit projects"}
	}
	if patch.Empty() {
		metrics.ProjectMutationsTotal.WithLabelValues("update", "invalid").Inc()
		return nil, validationError("No fields to update")
	}

	project, err := s.Project(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.ProjectMutationsTotal.WithLabelValues("update", "not_found").Inc()
		}
		return nil, err
	}

	patch.Apply(project)
	project.Title = strings.TrimSpace(project.Title)
	project.UserID = strings.TrimSpace(project.UserID)
	if err := validateProject(project); err != nil {
		metrics.ProjectMutationsTotal.WithLabelValues("update", "invalid").Inc()
		return nil, err
	}
	project.UpdatedAt = time.Now()

	if err := s.store.Projects().Update(ctx, project); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			metrics.ProjectMutationsTotal.WithLabelValues("update", "not_found").Inc()
			return nil, notFoundError("Project not found")
		case errors.Is(err, storage.ErrDuplicate):
			metrics.ProjectMutationsTotal.WithLabelValues("update", "conflict").Inc()
			return nil, conflictError(duplicateTitleMessage)
		}
		metrics.ProjectMutationsTotal.WithLabelValues("update", "error").Inc()
		s.storageError("update_project", err)
		return nil, fmt.Errorf("update project: %w", err)
	}

	metrics.ProjectMutationsTotal.WithLabelValues("update", "ok").Inc()
	s.logger.Info("project updated",
		zap.String("project_id", project.ID),
		zap.String("by", caller.Username))
	return project, nil
}

func validateProject(p *models.Project) error {
	if p.Title == "" {
		return validationError("title is required")
	}
	if len(p.Title) > 200 {
		return validationError("title must be at most 200 characters")
	}
	if p.Description == "" {
		return validationError("description is required")
	}
	if p.UserID == "" {
		return validationError("userId is required")
	}
	for i, t := range p.TaskList {
		if strings.TrimSpace(t.Task) == "" {
			return validationError(fmt.Sprintf("task %d is empty", i+1))
		}
	}
	dates := []struct {
		name string
		date models.Date
	}{
		{"assignDate", p.AssignDate},
		{"dueDate", p.DueDate},
		{"startDate", p.StartDate},
		{"endDate", p.EndDate},
	}
	for _, d := range dates {
		if d.date.IsZero() {
			return validationError(d.name + " is required")
		}
	}
	if !p.Status.Valid() {
		return validationError("status must be one of ongoing, pending, complete")
	}
	return nil
}
