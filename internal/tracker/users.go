package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

// SignupInput is the data required to register an account.
type SignupInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// Signup validates input and creates a user with a hashed password.
// Validation runs before any uniqueness check. The email is lowercased so
// that the unique index and the login lookup ignore case.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if username == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" || strings.TrimSpace(in.Role) == "" {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, validationError("All fields are required")
	}
	if in.Password != in.ConfirmPassword {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, validationError("Passwords do not match")
	}
	if err := ValidatePassword(in.Password); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, validationError(PasswordPolicyMessage)
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, validationError("Invalid role specified")
	}
	if err := validateAccountNames(username, email); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(username, email, role)
	user.PasswordHash = string(hash)

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			metrics.SignupsTotal.WithLabelValues("conflict").Inc()
			return nil, conflictError("Username or email already exists")
		}
		s.storageError("create_user", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	s.logger.Info("user created",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate looks up a user by email or username and verifies the password.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, validationError("Username/email and password are required")
	}

	lookup := identifier
	if strings.Contains(identifier, "@") {
		lookup = strings.ToLower(identifier)
	}
	user, err := s.store.Users().GetByLogin(ctx, lookup)
	if err != nil {
		s.storageError("get_user", err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFoundError("User not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &Error{Kind: ErrUnauthorized, Message: "Invalid password"}
	}
	return user, nil
}

// User returns the user with the given id.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		s.storageError("get_user", err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFoundError("User not found")
	}
	return user, nil
}

// Users returns every account ordered by username.
func (s *Service) Users(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		s.storageError("list_users", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Login treats an identifier containing "@" as an email, so usernames may not
// contain one and emails must. Emails are stored lowercased; see Signup.
func validateAccountNames(username, email string) error {
	if strings.Contains(username, "@") {
		return validationError("Username must not contain @")
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return validationError("Invalid email address")
	}
	return nil
}
