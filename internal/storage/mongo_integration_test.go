//go:build integration

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// Integration tests require a running MongoDB.
// Run with: go test -tags=integration ./internal/storage/...

func setupMongoTest(t *testing.T) *MongoStorage {
	t.Helper()

	uri := os.Getenv("PROJTRACK_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	store := NewMongoStorage(&MongoConfig{
		URI:            uri,
		Database:       fmt.Sprintf("projtrack_test_%d", time.Now().UnixNano()),
		ConnectTimeout: 3 * time.Second,
	}, nil)
	if err := store.Open(); err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		store.db.Drop(context.Background())
		store.Close()
	})
	return store
}

func TestMongoStorage_Projects_Integration(t *testing.T) {
	store := setupMongoTest(t)
	ctx := context.Background()
	repo := store.Projects()

	project := newTestProject(t, "T1", "alice")
	if err := repo.Create(ctx, project); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newTestProject(t, "T1", "alice")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate create error = %v, want ErrDuplicate", err)
	}
	if err := repo.Create(ctx, newTestProject(t, "T1", "bob")); err != nil {
		t.Errorf("other user create: %v", err)
	}

	got, err := repo.GetByID(ctx, project.ID)
	if err != nil || got == nil {
		t.Fatalf("get = %v, %v", got, err)
	}
	if len(got.TaskList) != 2 || got.StartDate.String() != "2024-01-05" {
		t.Errorf("unexpected project %+v", got)
	}

	if err := repo.UpdateTitle(ctx, models.TitleUpdate{ID: project.ID, Title: "T9", Status: models.StatusComplete}); err != nil {
		t.Fatalf("update title: %v", err)
	}
	titles, err := repo.ListTitles(ctx)
	if err != nil || len(titles) != 2 {
		t.Fatalf("list titles = %d, %v", len(titles), err)
	}

	if missing, err := repo.GetByID(ctx, "not-an-object-id"); err != nil || missing != nil {
		t.Errorf("malformed id lookup = %v, %v", missing, err)
	}
}

func TestMongoStorage_Users_Integration(t *testing.T) {
	store := setupMongoTest(t)
	ctx := context.Background()

	u := models.NewUser("alice", "a@x.com", models.RoleManager)
	u.PasswordHash = "h"
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := models.NewUser("bob", "a@x.com", models.RoleIntern)
	dup.PasswordHash = "h"
	if err := store.Users().Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email error = %v, want ErrDuplicate", err)
	}

	got, err := store.Users().GetByLogin(ctx, "alice")
	if err != nil || got == nil || got.Email != "a@x.com" {
		t.Errorf("get by login = %+v, %v", got, err)
	}
}
