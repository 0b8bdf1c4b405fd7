package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

// memStorage is an in-memory storage.Storage for service tests.
type memStorage struct {
	mu       sync.Mutex
	nextID   int
	users    map[string]*models.User
	projects map[string]*models.Project

	// failTitleFor makes UpdateTitle fail with a generic error for this id.
	failTitleFor string
	listErr      error
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:    make(map[string]*models.User),
		projects: make(map[string]*models.Project),
	}
}

func (m *memStorage) Open() error                    { return nil }
func (m *memStorage) Close() error                   { return nil }
func (m *memStorage) Migrate() error                 { return nil }
func (m *memStorage) Ping(ctx context.Context) error { return nil }
func (m *memStorage) Name() string                   { return "memory" }

func (m *memStorage) Users() storage.UserRepository       { return (*memUsers)(m) }
func (m *memStorage) Projects() storage.ProjectRepository { return (*memProjects)(m) }
func (m *memStorage) Tokens() storage.TokenRepository     { return nil }

func (m *memStorage) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

type memUsers memStorage

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	user.ID = (*memStorage)(r).id()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUsers) find(match func(*models.User) bool) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (r *memUsers) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == identifier || u.Username == identifier }), nil
}

func (r *memUsers) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memUsers) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type memProjects memStorage

func (r *memProjects) taken(title, userID, exceptID string) bool {
	for _, p := range r.projects {
		if p.ID != exceptID && p.Title == title && p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *memProjects) Create(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(project.Title, project.UserID, "") {
		return storage.ErrDuplicate
	}
	project.ID = (*memStorage)(r).id()
	copied := *project
	r.projects[project.ID] = &copied
	return nil
}

func (r *memProjects) GetByID(ctx context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		//nolint:nilnil
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *memProjects) GetByTitle(ctx context.Context, title, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Title == title && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	//nolint:nilnil
	return nil, nil
}

func (r *memProjects) Update(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; !ok {
		return storage.ErrNotFound
	}
	if r.taken(project.Title, project.UserID, project.ID) {
		return storage.ErrDuplicate
	}
	copied := *project
	r.projects[project.ID] = &copied
	return nil
}

func (r *memProjects) UpdateTitle(ctx context.Context, update models.TitleUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if update.ID == r.failTitleFor {
		return fmt.Errorf("disk on fire")
	}
	p, ok := r.projects[update.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if r.taken(update.Title, p.UserID, p.ID) {
		return storage.ErrDuplicate
	}
	p.Title = update.Title
	if update.Status != "" {
		p.Status = update.Status
	}
	return nil
}

func (r *memProjects) ListTitles(ctx context.Context) ([]*models.ProjectTitle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []*models.ProjectTitle{}
	for _, p := range r.projects {
		out = append(out, &models.ProjectTitle{
			ID: p.ID, Title: p.Title, AssignDate: p.AssignDate, EndDate: p.EndDate, Status: p.Status,
		})
	}
	return out, nil
}
