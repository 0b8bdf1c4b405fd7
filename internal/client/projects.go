package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/tracker"
)

// ListTitles returns every project projected to id, title, dates and status.
func (c *Client) ListTitles(ctx context.Context) ([]*models.ProjectTitle, error) {
	var titles []*models.ProjectTitle
	if _, err := c.call(ctx, http.MethodGet, "/project-titles", nil, &titles, true); err != nil {
		return nil, err
	}
	return titles, nil
}

// Project fetches one project by id.
func (c *Client) Project(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if _, err := c.call(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, &project, true); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject stores a new project.
func (c *Client) CreateProject(ctx context.Context, in tracker.ProjectInput) (*models.Project, error) {
	var resp struct {
		Message string          `json:"message"`
		Project *models.Project `json:"project"`
	}
	if _, err := c.call(ctx, http.MethodPost, "/demo", in, &resp, true); err != nil {
		return nil, err
	}
	if resp.Project == nil {
		return nil, fmt.Errorf("create project: empty response")
	}
	return resp.Project, nil
}

// UpdateProject applies the non-nil fields of patch.
func (c *Client) UpdateProject(ctx context.Context, id string, patch tracker.ProjectPatch) (*models.Project, error) {
	var project models.Project
	if _, err := c.call(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), patch, &project, true); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateTitles sends a batch of title and status changes. A partially
// applied batch (207) is not an error; inspect the per-item results.
func (c *Client) UpdateTitles(ctx context.Context, updates []models.TitleUpdate) (*tracker.BatchResult, error) {
	req := struct {
		Titles []models.TitleUpdate `json:"titles"`
	}{Titles: updates}

	var result tracker.BatchResult
	if _, err := c.call(ctx, http.MethodPut, "/project-titles", req, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}
