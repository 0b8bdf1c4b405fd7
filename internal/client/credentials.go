package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// Credentials is what projctl remembers between invocations.
type Credentials struct {
	Server       string      `yaml:"server"`
	Username     string      `yaml:"username,omitempty"`
	Role         models.Role `yaml:"role,omitempty"`
	AccessToken  string      `yaml:"access_token,omitempty"`
	RefreshToken string      `yaml:"refresh_token,omitempty"`
}

// LoggedIn reports whether the credentials carry a token pair.
func (c *Credentials) LoggedIn() bool {
	return c != nil && c.AccessToken != ""
}

// CredentialStore persists Credentials as a YAML file.
type CredentialStore struct {
	path string
}

// NewCredentialStore stores credentials at path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialsPath returns ~/.config/projtrack/credentials.yaml
// (or the platform equivalent).
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "projtrack", "credentials.yaml"), nil
}

// Path returns the file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load reads the stored credentials. A missing file yields empty credentials.
func (s *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.path, err)
	}
	return &creds, nil
}

// Save writes creds with owner-only permissions.
func (s *CredentialStore) Save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes the stored credentials.
func (s *CredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
