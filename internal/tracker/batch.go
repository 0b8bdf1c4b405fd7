package tracker

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/projtrack/internal/metrics"
	"github.com/good-yellow-bee/projtrack/internal/models"
	"github.com/good-yellow-bee/projtrack/internal/storage"
)

// TitleOutcome is the result of one batch item.
type TitleOutcome string

const (
	OutcomeUpdated  TitleOutcome = "updated"
	OutcomeNotFound TitleOutcome = "not_found"
	OutcomeConflict TitleOutcome = "conflict"
	OutcomeInvalid  TitleOutcome = "invalid"
	OutcomeFailed   TitleOutcome = "failed"
)

// TitleResult reports what happened to one batch item.
type TitleResult struct {
	ID      string       `json:"id"`
	Outcome TitleOutcome `json:"outcome"`
	Message string       `json:"message,omitempty"`
}

// BatchResult holds per-item results in request order.
type BatchResult struct {
	Results []TitleResult `json:"results"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
}

// AllUpdated reports whether every item was applied.
func (r *BatchResult) AllUpdated() bool {
	return r.Failed == 0
}

// UpdateTitles sets title and status on each listed project. An item
// without a status keeps the current one. Items are independent: a failed
// item does not undo the others.
func (s *Service) UpdateTitles(ctx context.Context, caller Caller, updates []models.TitleUpdate) (*BatchResult, error) {
	if !caller.Role.CanEdit() {
		return nil, &Error{Kind: ErrForbidden, Message: "Only admins and managers can edit projects"}
	}
	if len(updates) == 0 {
		return nil, validationError("titles must be a non-empty list")
	}
	metrics.BatchSize.Observe(float64(len(updates)))

	results := make([]TitleResult, len(updates))
	seen := make(map[string]bool, len(updates))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)

	for i, u := range updates {
		u.ID = strings.TrimSpace(u.ID)
		u.Title = strings.TrimSpace(u.Title)
		results[i] = TitleResult{ID: u.ID}

		if msg := validateTitleUpdate(u); msg != "" {
			results[i].Outcome = OutcomeInvalid
			results[i].Message = msg
			continue
		}
		if seen[u.ID] {
			results[i].Outcome = OutcomeInvalid
			results[i].Message = "duplicate id in batch"
			continue
		}
		seen[u.ID] = true

		g.Go(func() error {
			results[i].Outcome, results[i].Message = s.applyTitle(ctx, u)
			return nil
		})
	}
	// applyTitle records failures per item, so no goroutine returns an error.
	_ = g.Wait()

	batch := &BatchResult{Results: results}
	for _, r := range results {
		metrics.BatchItemsTotal.WithLabelValues(string(r.Outcome)).Inc()
		if r.Outcome == OutcomeUpdated {
			batch.Updated++
		} else {
			batch.Failed++
		}
	}

	metrics.ProjectMutationsTotal.WithLabelValues("retitle", batchMetricResult(batch)).Inc()
	s.logger.Info("project titles updated",
		zap.Int("updated", batch.Updated),
		zap.Int("failed", batch.Failed),
		zap.String("by", caller.Username))
	return batch, nil
}

func (s *Service) applyTitle(ctx context.Context, u models.TitleUpdate) (TitleOutcome, string) {
	err := s.store.Projects().UpdateTitle(ctx, u)
	switch {
	case err == nil:
		return OutcomeUpdated, ""
	case errors.Is(err, storage.ErrNotFound):
		return OutcomeNotFound, "Project not found"
	case errors.Is(err, storage.ErrDuplicate):
		return OutcomeConflict, duplicateTitleMessage
	default:
		s.storageError("update_title", err)
		return OutcomeFailed, "update failed"
	}
}

func validateTitleUpdate(u models.TitleUpdate) string {
	switch {
	case u.ID == "":
		return "id is required"
	case u.Title == "":
		return "title is required"
	case len(u.Title) > 200:
		return "title must be at most 200 characters"
	case u.Status != "" && !u.Status.Valid():
		return "status must be one of ongoing, pending, complete"
	}
	return ""
}

func batchMetricResult(b *BatchResult) string {
	if b.AllUpdated() {
		return "ok"
	}
	return "partial"
}
