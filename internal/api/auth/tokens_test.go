package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

func newTokenTestStore(t *testing.T) (*storage.SQLiteStorage, *models.User) {
	t.Helper()
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tokens.db"), nil)
	if err := store.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := models.NewUser("alice", "alice@example.com", models.RoleManager)
	user.PasswordHash = "x"
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, user
}

func TestTokenService_Rotate(t *testing.T) {
	store, user := newTokenTestStore(t)
	svc := NewTokenService(store, time.Hour, nil)
	ctx := context.Background()

	first, err := svc.CreateRefreshToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	owner, err := svc.ValidateRefreshToken(ctx, first)
	if err != nil || owner.ID != user.ID {
		t.Fatalf("validate = %v, %v", owner, err)
	}

	second, err := svc.RotateRefreshToken(ctx, first, user.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if second == first {
		t.Fatal("rotation returned the same token")
	}
	if _, err := svc.ValidateRefreshToken(ctx, first); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("rotated-out token error = %v, want ErrInvalidRefreshToken", err)
	}
	if _, err := svc.ValidateRefreshToken(ctx, second); err != nil {
		t.Errorf("replacement token: %v", err)
	}
}

func TestTokenService_RotateOnlyOnce(t *testing.T) {
	store, user := newTokenTestStore(t)
	svc := NewTokenService(store, time.Hour, nil)
	ctx := context.Background()

	tok, err := svc.CreateRefreshToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Two refreshes that both validated tok before either rotated it.
	for range 2 {
		if _, err := svc.ValidateRefreshToken(ctx, tok); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	first, err := svc.RotateRefreshToken(ctx, tok, user.ID)
	if err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	second, err := svc.RotateRefreshToken(ctx, tok, user.ID)
	if !errors.Is(err, ErrInvalidRefreshToken) || second != "" {
		t.Errorf("second rotate = %q, %v; want ErrInvalidRefreshToken", second, err)
	}
	if _, err := svc.ValidateRefreshToken(ctx, first); err != nil {
		t.Errorf("winning replacement: %v", err)
	}
}

func TestTokenService_RejectsUnknownAndExpired(t *testing.T) {
	store, user := newTokenTestStore(t)
	ctx := context.Background()

	if _, err := NewTokenService(store, time.Hour, nil).ValidateRefreshToken(ctx, "never-issued"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("unknown token error = %v", err)
	}

	expired, err := NewTokenService(store, -time.Minute, nil).CreateRefreshToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := NewTokenService(store, time.Hour, nil).ValidateRefreshToken(ctx, expired); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expired token error = %v", err)
	}
}

func TestTokenService_RevokeAllForUser(t *testing.T) {
	store, user := newTokenTestStore(t)
	svc := NewTokenService(store, time.Hour, nil)
	ctx := context.Background()

	var issued []string
	for range 3 {
		tok, err := svc.CreateRefreshToken(ctx, user.ID)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		issued = append(issued, tok)
	}

	if err := svc.RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for i, tok := range issued {
		if _, err := svc.ValidateRefreshToken(ctx, tok); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Errorf("token %d still valid after revoke all: %v", i, err)
		}
	}
}
