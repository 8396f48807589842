// Package repository gives typed access to the claim and appeal collections,
// reseeding the built-in sample data whenever the stored set is unusable.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/store"
)

var (
	// ErrAppealExists is returned by InsertAppeal when the id is already stored.
	ErrAppealExists   = errors.New("appeal already exists")
	ErrAppealNotFound = errors.New("appeal not found")
	// ErrStorageUnavailable means the stored collection could not be read, so
	// nothing was written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type Repository struct {
	Store  *store.Store
	Logger zerolog.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

func New(s *store.Store, logger zerolog.Logger) *Repository {
	return &Repository{Store: s, Logger: logger.With().Str("component", "repository").Logger()}
}

// ListClaims returns the stored claims, reseeding the sample set when the
// stored one is missing or unusable. A backend read failure yields the
// sample set without touching storage.
func (r *Repository) ListClaims(ctx context.Context) []models.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	claims, _ := r.listClaims(ctx)
	return claims
}

func (r *Repository) listClaims(ctx context.Context) ([]models.Claim, error) {
	var stored []models.Claim
	if _, err := r.Store.Load(ctx, store.ClaimsKey, &stored); err != nil {
		return BackfillClaims(SeedClaims()), fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !claimsUsable(stored) {
		seeded := BackfillClaims(SeedClaims())
		r.Store.Write(ctx, store.ClaimsKey, seeded)
		r.Logger.Info().Int("count", len(seeded)).Msg("seeded claims")
		return seeded, nil
	}
	return stored, nil
}

func claimsUsable(claims []models.Claim) bool {
	if len(claims) == 0 {
		return false
	}
	hasSeed := false
	for _, c := range claims {
		if c.AllocatedAmount == nil {
			return false
		}
		if c.ID == SeedClaimID {
			hasSeed = true
		}
	}
	return hasSeed
}

func (r *Repository) GetClaim(ctx context.Context, id string) (models.Claim, bool) {
	for _, c := range r.ListClaims(ctx) {
		if c.ID == id {
			return c, true
		}
	}
	return models.Claim{}, false
}

// ListAppeals returns the stored appeals with the seed appeal merged in
// front when missing. A backend read failure yields the seed set without
// touching storage.
func (r *Repository) ListAppeals(ctx context.Context) []models.Appeal {
	r.mu.Lock()
	defer r.mu.Unlock()
	appeals, _ := r.listAppeals(ctx)
	return appeals
}

func (r *Repository) listAppeals(ctx context.Context) ([]models.Appeal, error) {
	var stored []models.Appeal
	if _, err := r.Store.Load(ctx, store.AppealsKey, &stored); err != nil {
		return SeedAppeals(), fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(stored) > 0 && hasAppeal(stored, SeedAppealID) {
		return stored, nil
	}

	merged := SeedAppeals()
	for _, a := range stored {
		if !hasAppeal(merged, a.ID) {
			merged = append(merged, a)
		}
	}
	r.Store.Write(ctx, store.AppealsKey, merged)
	r.Logger.Info().Int("count", len(merged)).Msg("merged seed appeals")
	return merged, nil
}

func hasAppeal(appeals []models.Appeal, id string) bool {
	return indexOf(appeals, id) >= 0
}

func indexOf(appeals []models.Appeal, id string) int {
	for i, a := range appeals {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) GetAppeal(ctx context.Context, id string) (models.Appeal, bool) {
	for _, a := range r.ListAppeals(ctx) {
		if a.ID == id {
			return a, true
		}
	}
	return models.Appeal{}, false
}

// InsertAppeal appends a iff its id is unused. On collision the stored
// appeal is left unchanged and ErrAppealExists is returned.
func (r *Repository) InsertAppeal(ctx context.Context, a models.Appeal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appeals, err := r.listAppeals(ctx)
	if err != nil {
		return err
	}
	if hasAppeal(appeals, a.ID) {
		r.Logger.Warn().Str("appeal_id", a.ID).Msg("appeal id already exists, not inserting")
		return ErrAppealExists
	}
	r.Store.Write(ctx, store.AppealsKey, append(appeals, a))
	return nil
}

// UpdateAppeal replaces the stored appeal with the same id and reports
// whether it did. Nothing is written on a miss or an unreadable store.
func (r *Repository) UpdateAppeal(ctx context.Context, a models.Appeal) bool {
	_, err := r.UpdateAppealIf(ctx, a.ID, func(models.Appeal) (models.Appeal, error) {
		return a, nil
	})
	return err == nil
}

// UpdateAppealIf reads the appeal id, passes it to change and stores what
// change returns, all under the repository lock. If change fails nothing is
// written and its error is returned as is.
func (r *Repository) UpdateAppealIf(ctx context.Context, id string, change func(models.Appeal) (models.Appeal, error)) (models.Appeal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appeals, err := r.listAppeals(ctx)
	if err != nil {
		return models.Appeal{}, err
	}
	i := indexOf(appeals, id)
	if i < 0 {
		return models.Appeal{}, fmt.Errorf("%w: %s", ErrAppealNotFound, id)
	}
	updated, err := change(appeals[i])
	if err != nil {
		return models.Appeal{}, err
	}
	updated.ID = id
	appeals[i] = updated
	r.Store.Write(ctx, store.AppealsKey, appeals)
	return updated, nil
}

// Reset overwrites both collections with the built-in sample data.
func (r *Repository) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Store.Write(ctx, store.ClaimsKey, BackfillClaims(SeedClaims()))
	r.Store.Write(ctx, store.AppealsKey, SeedAppeals())
	r.Logger.Info().Msg("storage reset to sample data")
}
