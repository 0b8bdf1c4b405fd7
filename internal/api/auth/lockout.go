package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// lockoutEntry tracks failed login attempts for one login identifier.
type lockoutEntry struct {
	failures    int
	lockedUntil time.Time
}

func (e *lockoutEntry) locked(now time.Time) bool {
	return !e.lockedUntil.IsZero() && now.Before(e.lockedUntil)
}

// LockoutTracker tracks failed login attempts per identifier and locks the
// identifier after threshold consecutive failures. State is in memory only.
type LockoutTracker struct {
	mu              sync.Mutex
	entries         map[string]*lockoutEntry
	threshold       int
	lockoutDuration time.Duration
	now             func() time.Time
}

// NewLockoutTracker creates a new lockout tracker.
func NewLockoutTracker(threshold int, duration time.Duration) *LockoutTracker {
	return &LockoutTracker{
		entries:         make(map[string]*lockoutEntry),
		threshold:       threshold,
		lockoutDuration: duration,
		now:             time.Now,
	}
}

// lockoutKey folds email and username spellings of the same identifier together.
func lockoutKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// RecordFailure records a failed login attempt.
// Returns true if the identifier is now locked.
func (t *LockoutTracker) RecordFailure(identifier string) bool {
	key := lockoutKey(identifier)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		entry = &lockoutEntry{}
		t.entries[key] = entry
	}
	if entry.locked(now) {
		return true
	}
	if !entry.lockedUntil.IsZero() {
		// previous lockout expired
		*entry = lockoutEntry{}
	}

	entry.failures++
	if entry.failures >= t.threshold {
		entry.lockedUntil = now.Add(t.lockoutDuration)
		return true
	}
	return false
}

// IsLocked returns true if the identifier is currently locked.
func (t *LockoutTracker) IsLocked(identifier string) bool {
	return t.RemainingLockoutTime(identifier) > 0
}

// RemainingLockoutTime returns how long until the lockout expires.
func (t *LockoutTracker) RemainingLockoutTime(identifier string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[lockoutKey(identifier)]
	if !ok || entry.lockedUntil.IsZero() {
		return 0
	}
	remaining := entry.lockedUntil.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearFailures clears failed attempts on successful login.
func (t *LockoutTracker) ClearFailures(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, lockoutKey(identifier))
}

// Run removes expired entries every interval until ctx is canceled.
func (t *LockoutTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

func (t *LockoutTracker) cleanup() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.entries {
		if !entry.lockedUntil.IsZero() && !entry.locked(now) {
			delete(t.entries, key)
		}
	}
}

// Len returns the number of tracked identifiers.
func (t *LockoutTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
