package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claimflow/backend/internal/models"
)

const defaultConcurrency = 4

type RunSummary struct {
	Events []map[string]any `json:"events"`
	Counts map[string]any   `json:"counts"`
	Errors []RunError       `json:"errors,omitempty"`
}

type RunError struct {
	AppealID string `json:"appeal_id"`
	Error    string `json:"error"`
}

// ProcessPending advances every Pending Validation appeal, running at most
// concurrency validations at once. Per-appeal failures are collected into the
// summary; only context cancellation aborts the run.
func (s *AppealService) ProcessPending(ctx context.Context, concurrency int) (RunSummary, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	var pending []string
	for _, a := range s.Repo.ListAppeals(ctx) {
		if a.Status == models.StatusPendingValidation && a.ValidationResult == nil {
			pending = append(pending, a.ID)
		}
	}

	summary := RunSummary{Counts: map[string]any{}}
	start := time.Now()
	summary.Events = append(summary.Events, map[string]any{
		"type":    "pending_scan",
		"message": "Appeals ready for validation",
		"count":   len(pending),
		"time":    time.Now().UTC(),
	})

	var (
		mu       sync.Mutex
		byStatus = map[string]int{}
		failed   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range pending {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			appeal, err := s.Advance(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				summary.Errors = append(summary.Errors, RunError{AppealID: id, Error: err.Error()})
				return nil
			}
			byStatus[string(appeal.Status)]++
			if appeal.ValidationError != "" {
				summary.Errors = append(summary.Errors, RunError{AppealID: id, Error: appeal.ValidationError})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.Events = append(summary.Events, map[string]any{
		"type":       "validation",
		"message":    "Automated validation complete",
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})
	summary.Counts["appeals_processed"] = len(pending)
	summary.Counts["by_status"] = byStatus
	summary.Counts["errors"] = failed
	s.Logger.Info().Int("processed", len(pending)).Int("errors", failed).Msg("pending appeals processed")
	return summary, nil
}
