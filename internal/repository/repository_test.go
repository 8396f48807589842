package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/store"
)

func newRepo(t *testing.T) (*Repository, *store.Store) {
	t.Helper()
	s := store.New(store.NewMemoryBackend(), zerolog.Nop())
	return New(s, zerolog.Nop()), s
}

// flakyBackend wraps a memory backend and fails the next failGets reads.
type flakyBackend struct {
	*store.MemoryBackend
	mu       sync.Mutex
	failGets int
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *flakyBackend) failNext(n int) {
	f.mu.Lock()
	f.failGets = n
	f.mu.Unlock()
}

func newFlakyRepo(t *testing.T) (*Repository, *flakyBackend) {
	t.Helper()
	b := &flakyBackend{MemoryBackend: store.NewMemoryBackend()}
	return New(store.New(b, zerolog.Nop()), zerolog.Nop()), b
}

func sameClaims(t *testing.T, want, got []models.Claim) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.True(t, want[i].ClaimAmount.Equal(got[i].ClaimAmount), "claimAmount of %s", want[i].ID)
		require.NotNil(t, got[i].AllocatedAmount)
		assert.True(t, want[i].AllocatedAmount.Equal(*got[i].AllocatedAmount), "allocatedAmount of %s", want[i].ID)
		assert.True(t, want[i].RejectionDate.Equal(got[i].RejectionDate))
	}
}

func TestListClaimsSeedsEmptyStore(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()

	claims := repo.ListClaims(ctx)
	require.Len(t, claims, 5)

	var persisted []models.Claim
	require.True(t, s.Read(ctx, store.ClaimsKey, &persisted))
	sameClaims(t, claims, persisted)
}

func TestListClaimsIsStableWithoutWrites(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	first := repo.ListClaims(ctx)
	second := repo.ListClaims(ctx)
	third := repo.ListClaims(ctx)
	sameClaims(t, first, second)
	assert.Equal(t, second, third)
}

func TestListClaimsReseedsWhenAllocatedAmountMissing(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()
	s.Write(ctx, store.ClaimsKey, []models.Claim{
		{ID: SeedClaimID, ClaimAmount: decimal.RequireFromString("10")},
	})

	claims := repo.ListClaims(ctx)
	require.Len(t, claims, 5)
	for _, c := range claims {
		assert.NotNil(t, c.AllocatedAmount, c.ID)
	}
}

func TestListClaimsKeepsUsableStoredSet(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()
	alloc := decimal.RequireFromString("50")
	s.Write(ctx, store.ClaimsKey, []models.Claim{
		{ID: SeedClaimID, ClaimAmount: decimal.RequireFromString("10"), AllocatedAmount: &alloc},
	})

	claims := repo.ListClaims(ctx)
	require.Len(t, claims, 1)
	assert.True(t, claims[0].AllocatedAmount.Equal(alloc))
}

func TestBackfillClaims(t *testing.T) {
	in := []models.Claim{{ID: "X", ClaimAmount: decimal.RequireFromString("250")}}
	out := BackfillClaims(in)
	require.NotNil(t, out[0].AllocatedAmount)
	assert.True(t, out[0].AllocatedAmount.Equal(decimal.RequireFromString("300")))
	assert.Nil(t, in[0].AllocatedAmount)
}

func TestGetClaim(t *testing.T) {
	repo, _ := newRepo(t)
	c, ok := repo.GetClaim(context.Background(), "CLM001")
	require.True(t, ok)
	assert.Equal(t, "Alice Wonderland", c.PolicyHolderName)
	assert.True(t, c.ClaimAmount.Equal(decimal.RequireFromString("1250.75")))
	assert.True(t, c.AllocatedAmount.Equal(decimal.RequireFromString("1500")))

	_, ok = repo.GetClaim(context.Background(), "nope")
	assert.False(t, ok)
}

func TestListAppealsMergesSeedWithoutDroppingStored(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()
	s.Write(ctx, store.AppealsKey, []models.Appeal{{ID: "APL-OTHER", Status: models.StatusNeedsAgentReview}})

	appeals := repo.ListAppeals(ctx)
	require.Len(t, appeals, 2)
	assert.Equal(t, SeedAppealID, appeals[0].ID)
	assert.Equal(t, "APL-OTHER", appeals[1].ID)

	var persisted []models.Appeal
	require.True(t, s.Read(ctx, store.AppealsKey, &persisted))
	assert.Len(t, persisted, 2)
}

func TestInsertThenGet(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	a := models.Appeal{
		ID:             "APL-NEW",
		ClaimID:        "CLM001",
		Status:         models.StatusPendingValidation,
		SubmissionDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.InsertAppeal(ctx, a))

	got, ok := repo.GetAppeal(ctx, "APL-NEW")
	require.True(t, ok)
	assert.Equal(t, a.ClaimID, got.ClaimID)
	assert.True(t, a.SubmissionDate.Equal(got.SubmissionDate))
}

func TestInsertCollisionLeavesOriginal(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-1", AppealReason: "original"}))

	err := repo.InsertAppeal(ctx, models.Appeal{ID: "APL-1", AppealReason: "intruder"})
	assert.ErrorIs(t, err, ErrAppealExists)

	got, ok := repo.GetAppeal(ctx, "APL-1")
	require.True(t, ok)
	assert.Equal(t, "original", got.AppealReason)
	assert.Len(t, repo.ListAppeals(ctx), 2)
}

func TestUpdateAppealIdempotent(t *testing.T) {
	repo, s := newRepo(t)
	ctx := context.Background()
	seed, ok := repo.GetAppeal(ctx, SeedAppealID)
	require.True(t, ok)

	seed.Status = models.StatusNeedsAgentReview
	require.True(t, repo.UpdateAppeal(ctx, seed))
	var once []models.Appeal
	s.Read(ctx, store.AppealsKey, &once)

	require.True(t, repo.UpdateAppeal(ctx, seed))
	var twice []models.Appeal
	s.Read(ctx, store.AppealsKey, &twice)

	assert.Equal(t, once, twice)
	assert.Equal(t, models.StatusNeedsAgentReview, twice[0].Status)
}

func TestUpdateAppealMissIsNoop(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	before := repo.ListAppeals(ctx)
	assert.False(t, repo.UpdateAppeal(ctx, models.Appeal{ID: "ghost"}))
	assert.Equal(t, before, repo.ListAppeals(ctx))
}

func TestReset(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-X"}))
	repo.Reset(ctx)
	appeals := repo.ListAppeals(ctx)
	require.Len(t, appeals, 1)
	assert.Equal(t, SeedAppealID, appeals[0].ID)
}

func TestReadFailureDoesNotReseedAppeals(t *testing.T) {
	repo, b := newFlakyRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-A"}))
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-B"}))
	require.Len(t, repo.ListAppeals(ctx), 3)

	b.failNext(1)
	degraded := repo.ListAppeals(ctx)
	require.Len(t, degraded, 1)
	assert.Equal(t, SeedAppealID, degraded[0].ID)

	appeals := repo.ListAppeals(ctx)
	require.Len(t, appeals, 3)
	_, ok := repo.GetAppeal(ctx, "APL-A")
	assert.True(t, ok)
}

func TestReadFailureDoesNotReseedClaims(t *testing.T) {
	repo, b := newFlakyRepo(t)
	ctx := context.Background()
	alloc := decimal.RequireFromString("50")
	repo.Store.Write(ctx, store.ClaimsKey, []models.Claim{
		{ID: SeedClaimID, ClaimAmount: decimal.RequireFromString("10"), AllocatedAmount: &alloc},
	})

	b.failNext(1)
	assert.Len(t, repo.ListClaims(ctx), 5)
	assert.Len(t, repo.ListClaims(ctx), 1)
}

func TestWritesSkippedWhenReadFails(t *testing.T) {
	repo, b := newFlakyRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-A"}))

	b.failNext(1)
	err := repo.InsertAppeal(ctx, models.Appeal{ID: "APL-B"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	b.failNext(1)
	assert.False(t, repo.UpdateAppeal(ctx, models.Appeal{ID: "APL-A", AppealReason: "edited"}))

	b.failNext(1)
	_, err = repo.UpdateAppealIf(ctx, "APL-A", func(a models.Appeal) (models.Appeal, error) { return a, nil })
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	appeals := repo.ListAppeals(ctx)
	require.Len(t, appeals, 2)
	assert.Equal(t, "APL-A", appeals[1].ID)
	assert.Empty(t, appeals[1].AppealReason)
}

func TestUpdateAppealIf(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertAppeal(ctx, models.Appeal{ID: "APL-1", Status: models.StatusPendingValidation}))

	got, err := repo.UpdateAppealIf(ctx, "APL-1", func(a models.Appeal) (models.Appeal, error) {
		a.Status = models.StatusNeedsAgentReview
		return a, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsAgentReview, got.Status)

	refused := errors.New("refused")
	_, err = repo.UpdateAppealIf(ctx, "APL-1", func(a models.Appeal) (models.Appeal, error) {
		return models.Appeal{}, refused
	})
	assert.ErrorIs(t, err, refused)
	stored, _ := repo.GetAppeal(ctx, "APL-1")
	assert.Equal(t, models.StatusNeedsAgentReview, stored.Status)

	_, err = repo.UpdateAppealIf(ctx, "ghost", func(a models.Appeal) (models.Appeal, error) { return a, nil })
	assert.ErrorIs(t, err, ErrAppealNotFound)
}
