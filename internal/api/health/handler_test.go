package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Name() string                   { return "fake" }
func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
		wantCheck  string
	}{
		{"healthy", nil, http.StatusOK, "ready", "ok"},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable, "not_ready", "connection refused"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler()
			h.RegisterChecker(NewStorageChecker(&fakePinger{err: tc.pingErr}))

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tc.wantState {
				t.Errorf("status field = %q, want %q", resp.Status, tc.wantState)
			}
			if resp.Checks["storage:fake"] != tc.wantCheck {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestLiveAndHealth(t *testing.T) {
	h := NewHandler()

	for path, fn := range map[string]http.HandlerFunc{"/health": h.Health, "/health/live": h.Live} {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

type slowChecker struct {
	name  string
	delay time.Duration
}

func (c slowChecker) Name() string { return c.name }

func (c slowChecker) Check(ctx context.Context) error {
	select {
	case <-time.After(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestReady_RunsCheckersConcurrently(t *testing.T) {
	h := NewHandler()
	for _, name := range []string{"a", "b", "c", "d"} {
		h.RegisterChecker(slowChecker{name: name, delay: 100 * time.Millisecond})
	}

	start := time.Now()
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > 350*time.Millisecond {
		t.Errorf("ready took %v, checkers appear to run sequentially", elapsed)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHealth_ReportsUptime(t *testing.T) {
	h := NewHandler()
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/health", nil))

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Uptime == "" {
		t.Errorf("response = %+v", resp)
	}
}
