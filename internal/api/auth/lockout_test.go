package auth

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(threshold int, duration time.Duration) (*LockoutTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewLockoutTracker(threshold, duration)
	tracker.now = clock.now
	return tracker, clock
}

func TestLockoutTracker_Basic(t *testing.T) {
	tracker, _ := newTestTracker(3, time.Minute)
	id := "a@x.com"

	if tracker.IsLocked(id) {
		t.Error("identifier should not be locked initially")
	}

	tracker.RecordFailure(id)
	tracker.RecordFailure(id)
	if tracker.IsLocked(id) {
		t.Error("identifier should not be locked after 2 failures (threshold=3)")
	}

	if !tracker.RecordFailure(id) {
		t.Error("third failure should report lockout")
	}
	if !tracker.IsLocked(id) {
		t.Error("identifier should be locked after 3 failures")
	}
}

func TestLockoutTracker_CaseInsensitive(t *testing.T) {
	tracker, _ := newTestTracker(2, time.Minute)

	tracker.RecordFailure("A@X.com")
	tracker.RecordFailure(" a@x.com ")
	if !tracker.IsLocked("a@x.COM") {
		t.Error("spellings of the same identifier should share a counter")
	}
}

func TestLockoutTracker_LockoutExpires(t *testing.T) {
	tracker, clock := newTestTracker(2, 30*time.Second)
	id := "alice"

	tracker.RecordFailure(id)
	tracker.RecordFailure(id)
	if !tracker.IsLocked(id) {
		t.Fatal("identifier should be locked")
	}

	clock.advance(31 * time.Second)
	if tracker.IsLocked(id) {
		t.Error("lockout should have expired")
	}

	// Counter starts over after expiry.
	if tracker.RecordFailure(id) {
		t.Error("first failure after expiry should not lock")
	}
}

func TestLockoutTracker_ClearFailures(t *testing.T) {
	tracker, _ := newTestTracker(2, time.Hour)
	id := "alice"

	tracker.RecordFailure(id)
	tracker.ClearFailures(id)

	tracker.RecordFailure(id)
	if tracker.IsLocked(id) {
		t.Error("identifier should not be locked after clear and 1 failure")
	}
	tracker.RecordFailure(id)
	if !tracker.IsLocked(id) {
		t.Error("identifier should be locked after 2 failures")
	}
}

func TestLockoutTracker_RemainingTime(t *testing.T) {
	tracker, clock := newTestTracker(1, 100*time.Second)
	id := "alice"

	if got := tracker.RemainingLockoutTime(id); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}

	tracker.RecordFailure(id)
	clock.advance(40 * time.Second)
	if got := tracker.RemainingLockoutTime(id); got != 60*time.Second {
		t.Errorf("remaining = %v, want 60s", got)
	}
}

func TestLockoutTracker_IndependentIdentifiers(t *testing.T) {
	tracker, _ := newTestTracker(2, time.Hour)

	tracker.RecordFailure("user1")
	tracker.RecordFailure("user1")

	if !tracker.IsLocked("user1") {
		t.Error("user1 should be locked")
	}
	if tracker.IsLocked("user2") {
		t.Error("user2 should not be locked")
	}
}

func TestLockoutTracker_Cleanup(t *testing.T) {
	tracker, clock := newTestTracker(1, time.Minute)

	tracker.RecordFailure("expired")
	clock.advance(2 * time.Minute)
	tracker.RecordFailure("fresh")
	tracker.cleanup()

	if tracker.Len() != 1 {
		t.Errorf("entries after cleanup = %d, want 1", tracker.Len())
	}
	if !tracker.IsLocked("fresh") {
		t.Error("active lockout should survive cleanup")
	}
}
