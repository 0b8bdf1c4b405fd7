package health

import (
	"context"
	"fmt"
)

// Pinger is implemented by storage backends.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// StorageChecker checks connectivity of the active store.
type StorageChecker struct {
	store Pinger
}

// NewStorageChecker creates a new storage health checker.
func NewStorageChecker(store Pinger) *StorageChecker {
	return &StorageChecker{store: store}
}

// Name returns the checker name, e.g. "storage:sqlite".
func (c *StorageChecker) Name() string {
	if c.store == nil {
		return "storage"
	}
	return "storage:" + c.store.Name()
}

// Check verifies the store is reachable.
func (c *StorageChecker) Check(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("storage not initialized")
	}
	return c.store.Ping(ctx)
}
