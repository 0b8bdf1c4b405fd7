// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

var (
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned when an update targets a record that does not exist.
	ErrNotFound = errors.New("not found")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate creates the schema (tables or collections and their indexes).
	Migrate() error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Name identifies the backend in logs, metrics and health checks.
	Name() string

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for user accounts.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByLogin matches identifier against email or username.
	GetByLogin(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for projects.
// Lookups return (nil, nil) when no project matches.
type ProjectRepository interface {
	// Create assigns project.ID and inserts it. Returns ErrDuplicate when
	// (title, userId) is already taken.
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByTitle(ctx context.Context, title, userID string) (*models.Project, error)
	// Update replaces all mutable fields. Returns ErrNotFound or ErrDuplicate.
	Update(ctx context.Context, project *models.Project) error
	// UpdateTitle sets title and status of one project; an empty status is
	// left as stored. Returns ErrNotFound or ErrDuplicate.
	UpdateTitle(ctx context.Context, update models.TitleUpdate) error
	ListTitles(ctx context.Context) ([]*models.ProjectTitle, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// RevokeByTokenHash revokes an unrevoked token and reports how many
	// rows it matched (0 or 1).
	RevokeByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
