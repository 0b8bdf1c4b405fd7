package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

const projectColumns = `id, title, description, task_list, user_id,
	assign_date, due_date, start_date, end_date, status, created_at, updated_at`

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	tasks, err := marshalTasks(project.TaskList)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		project.ID, project.Title, project.Description, tasks, project.UserID,
		project.AssignDate.String(), project.DueDate.String(),
		project.StartDate.String(), project.EndDate.String(),
		project.Status, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert project: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) GetByTitle(ctx context.Context, title, userID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE title = ? AND user_id = ?`
	project, err := scanProject(r.db.QueryRowContext(ctx, query, title, userID))
	if err != nil {
		return nil, fmt.Errorf("get project by title: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	tasks, err := marshalTasks(project.TaskList)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects SET title = ?, description = ?, task_list = ?, user_id = ?,
			assign_date = ?, due_date = ?, start_date = ?, end_date = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Title, project.Description, tasks, project.UserID,
		project.AssignDate.String(), project.DueDate.String(),
		project.StartDate.String(), project.EndDate.String(),
		project.Status, project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update project: %w", ErrDuplicate)
		}
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) UpdateTitle(ctx context.Context, update models.TitleUpdate) error {
	query := `UPDATE projects SET title = ?, status = COALESCE(NULLIF(?, ''), status), updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, update.Title, update.Status, time.Now(), update.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update project title: %w", ErrDuplicate)
		}
		return fmt.Errorf("update project title: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update project title %s: %w", update.ID, ErrNotFound)
	}
	return nil
}

func (r *sqliteProjectRepo) ListTitles(ctx context.Context) ([]*models.ProjectTitle, error) {
	query := `SELECT id, title, assign_date, end_date, status FROM projects ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list project titles: %w", err)
	}
	defer rows.Close()

	titles := []*models.ProjectTitle{}
	for rows.Next() {
		t := &models.ProjectTitle{}
		var assignDate, endDate string
		if err := rows.Scan(&t.ID, &t.Title, &assignDate, &endDate, &t.Status); err != nil {
			return nil, fmt.Errorf("scan project title: %w", err)
		}
		if t.AssignDate, err = parseStoredDate(assignDate); err != nil {
			return nil, err
		}
		if t.EndDate, err = parseStoredDate(endDate); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func scanProject(row rowScanner) (*models.Project, error) {
	project := &models.Project{}
	var tasks string
	var assignDate, dueDate, startDate, endDate string
	err := row.Scan(
		&project.ID, &project.Title, &project.Description, &tasks, &project.UserID,
		&assignDate, &dueDate, &startDate, &endDate,
		&project.Status, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tasks), &project.TaskList); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if project.TaskList == nil {
		project.TaskList = []models.Task{}
	}

	dates := []struct {
		raw string
		dst *models.Date
	}{
		{assignDate, &project.AssignDate},
		{dueDate, &project.DueDate},
		{startDate, &project.StartDate},
		{endDate, &project.EndDate},
	}
	for _, d := range dates {
		if *d.dst, err = parseStoredDate(d.raw); err != nil {
			return nil, err
		}
	}
	return project, nil
}

func marshalTasks(tasks []models.Task) (string, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("encode task list: %w", err)
	}
	return string(data), nil
}

func parseStoredDate(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("decode stored date: %w", err)
	}
	return d, nil
}
