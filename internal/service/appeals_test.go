package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimflow/backend/internal/ai"
	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/repository"
	"github.com/claimflow/backend/internal/store"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type stubValidator struct {
	res   models.ValidationResult
	err   error
	calls atomic.Int32
}

func (s *stubValidator) ValidateClaim(ctx context.Context, _ ai.ValidationRequest) (models.ValidationResult, error) {
	s.calls.Add(1)
	return s.res, s.err
}

// gateValidator blocks until release is closed.
type gateValidator struct {
	started chan struct{}
	release chan struct{}
	res     models.ValidationResult
	calls   atomic.Int32
	once    sync.Once
}

func newGate(res models.ValidationResult) *gateValidator {
	return &gateValidator{started: make(chan struct{}), release: make(chan struct{}), res: res}
}

func (g *gateValidator) ValidateClaim(ctx context.Context, _ ai.ValidationRequest) (models.ValidationResult, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.res, nil
	case <-ctx.Done():
		return models.ValidationResult{}, ctx.Err()
	}
}

func newService(t *testing.T, v ai.Validator) *AppealService {
	t.Helper()
	repo := repository.New(store.New(store.NewMemoryBackend(), zerolog.Nop()), zerolog.Nop())
	return newServiceOn(t, repo, v)
}

func newServiceOn(t *testing.T, repo *repository.Repository, v ai.Validator) *AppealService {
	t.Helper()
	policies, err := ai.LoadPolicyCatalog("")
	if err != nil {
		t.Fatalf("policy catalog: %v", err)
	}
	return &AppealService{
		Repo:      repo,
		Validator: v,
		Policies:  policies,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
	}
}

func submit(t *testing.T, svc *AppealService, claimID string) models.Appeal {
	t.Helper()
	a, err := svc.Submit(context.Background(), SubmitInput{ClaimID: claimID, AppealReason: "The procedure was medically necessary."})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return a
}

func inRoster(name string) bool {
	for _, a := range models.Agents {
		if a == name {
			return true
		}
	}
	return false
}

func TestSubmitCreatesPendingAppeal(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	a := submit(t, svc, "CLM001")

	if a.Status != models.StatusPendingValidation || a.ValidationResult != nil || a.FinalDecisionDate != nil {
		t.Fatalf("expected fresh pending appeal, got %+v", a)
	}
	if !strings.HasPrefix(a.ID, "APL-") {
		t.Fatalf("unexpected id %q", a.ID)
	}
	if !inRoster(a.AssignedAgent) {
		t.Fatalf("agent %q not in roster", a.AssignedAgent)
	}
	if a.PolicyHolderName != "Alice Wonderland" || !a.SubmissionDate.Equal(fixedNow) {
		t.Fatalf("claim fields not copied: %+v", a)
	}
	got, err := svc.GetAppeal(context.Background(), a.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("appeal not persisted: %v", err)
	}
}

func TestSubmitSpreadsLoadAcrossAgents(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	seen := map[string]bool{}
	// the seed appeal already holds one slot
	for i := 0; i < len(models.Agents)-1; i++ {
		seen[submit(t, svc, "CLM002").AssignedAgent] = true
	}
	seed, _ := svc.GetAppeal(context.Background(), repository.SeedAppealID)
	seen[seed.AssignedAgent] = true
	if len(seen) != len(models.Agents) {
		t.Fatalf("expected every agent to receive one appeal, got %v", seen)
	}
}

func TestSubmitUnknownClaim(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	_, err := svc.Submit(context.Background(), SubmitInput{ClaimID: "CLM404", AppealReason: "please reconsider"})
	if !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestAdvanceMapsRecommendations(t *testing.T) {
	cases := map[models.Recommendation]models.AppealStatus{
		models.RecommendApprove:     models.StatusApproved,
		models.RecommendReject:      models.StatusRejected,
		models.RecommendAgentReview: models.StatusNeedsAgentReview,
	}
	for rec, want := range cases {
		svc := newService(t, &stubValidator{res: result(rec)})
		a := submit(t, svc, "CLM001")
		got, err := svc.Advance(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("%s: advance: %v", rec, err)
		}
		if got.Status != want || got.ValidationResult == nil || got.FinalDecisionDate != nil {
			t.Fatalf("%s: expected %q with result and no decision date, got %+v", rec, want, got)
		}
		stored, _ := svc.GetAppeal(context.Background(), a.ID)
		if stored.Status != want {
			t.Fatalf("%s: transition not persisted", rec)
		}
	}
}

func TestAdvanceFailureRoutesToAgent(t *testing.T) {
	svc := newService(t, &stubValidator{err: errors.New("model unavailable")})
	a := submit(t, svc, "CLM003")

	got, err := svc.Advance(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got.Status != models.StatusNeedsAgentReview {
		t.Fatalf("expected Needs Agent Review, got %q", got.Status)
	}
	if got.ValidationResult != nil {
		t.Fatalf("failed validation must not store a result")
	}
	if got.ValidationError == "" {
		t.Fatalf("expected validation error to be recorded")
	}
}

func TestAdvanceTimeoutRoutesToAgent(t *testing.T) {
	gate := newGate(result(models.RecommendApprove))
	svc := newService(t, gate)
	svc.Timeout = 20 * time.Millisecond
	a := submit(t, svc, "CLM005")

	got, err := svc.Advance(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got.Status != models.StatusNeedsAgentReview || got.ValidationResult != nil {
		t.Fatalf("expected timeout to route to agent review, got %+v", got)
	}
}

func TestAdvanceCancelledLeavesPending(t *testing.T) {
	gate := newGate(result(models.RecommendApprove))
	svc := newService(t, gate)
	a := submit(t, svc, "CLM005")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gate.started
		cancel()
	}()
	if _, err := svc.Advance(ctx, a.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	stored, _ := svc.GetAppeal(context.Background(), a.ID)
	if stored.Status != models.StatusPendingValidation {
		t.Fatalf("cancelled validation must leave the appeal pending, got %q", stored.Status)
	}
}

func TestAdvanceOnlyFromPending(t *testing.T) {
	svc := newService(t, &stubValidator{res: result(models.RecommendAgentReview)})
	a := submit(t, svc, "CLM004")
	if _, err := svc.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := svc.Advance(context.Background(), a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second advance, got %v", err)
	}
	if _, err := svc.Advance(context.Background(), "APL-missing"); !errors.Is(err, ErrAppealNotFound) {
		t.Fatalf("expected ErrAppealNotFound, got %v", err)
	}
}

func TestAdvanceCollapsesConcurrentCalls(t *testing.T) {
	gate := newGate(result(models.RecommendApprove))
	svc := newService(t, gate)
	a := submit(t, svc, "CLM005")

	var wg sync.WaitGroup
	results := make([]models.Appeal, 2)
	errs := make([]error, 2)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Advance(context.Background(), a.ID)
		}()
		if i == 0 {
			<-gate.started
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	if n := gate.calls.Load(); n != 1 {
		t.Fatalf("expected one validation call, got %d", n)
	}
	for i := range results {
		if errs[i] != nil || results[i].Status != models.StatusApproved {
			t.Fatalf("caller %d: expected approved, got %+v (%v)", i, results[i], errs[i])
		}
	}
}

func TestAdvanceDiscardsStaleResult(t *testing.T) {
	repo := repository.New(store.New(store.NewMemoryBackend(), zerolog.Nop()), zerolog.Nop())
	gate := newGate(result(models.RecommendApprove))
	slow := newServiceOn(t, repo, gate)
	fast := newServiceOn(t, repo, &stubValidator{res: result(models.RecommendReject)})
	a := submit(t, slow, "CLM005")

	done := make(chan models.Appeal, 1)
	go func() {
		got, err := slow.Advance(context.Background(), a.ID)
		if err != nil {
			t.Errorf("slow advance: %v", err)
		}
		done <- got
	}()
	<-gate.started
	if _, err := fast.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("fast advance: %v", err)
	}
	close(gate.release)

	got := <-done
	if got.Status != models.StatusRejected {
		t.Fatalf("late result must be discarded, got %q", got.Status)
	}
	stored, _ := slow.GetAppeal(context.Background(), a.ID)
	if stored.Status != models.StatusRejected {
		t.Fatalf("stored appeal overwritten by stale result: %q", stored.Status)
	}
}

func TestDecideFromAgentReview(t *testing.T) {
	svc := newService(t, &stubValidator{res: result(models.RecommendAgentReview)})
	a := submit(t, svc, "CLM003")
	if _, err := svc.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	decisionTime := fixedNow.Add(2 * time.Hour)
	svc.Now = func() time.Time { return decisionTime }
	got, err := svc.Decide(context.Background(), a.ID, models.StatusApproved, "  documents verified ")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.Status != models.StatusApproved || got.FinalDecisionDate == nil || !got.FinalDecisionDate.Equal(decisionTime) {
		t.Fatalf("expected approved with decision time, got %+v", got)
	}
	if !got.SubmissionDate.Equal(a.SubmissionDate) {
		t.Fatalf("submission date changed")
	}
	if got.AgentComments != "documents verified" {
		t.Fatalf("unexpected comments %q", got.AgentComments)
	}

	if _, err := svc.Decide(context.Background(), a.ID, models.StatusRejected, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("decided appeals are terminal, got %v", err)
	}
}

func TestDecideInfoRequestedIsTerminal(t *testing.T) {
	svc := newService(t, &stubValidator{err: errors.New("boom")})
	a := submit(t, svc, "CLM003")
	if _, err := svc.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	got, err := svc.Decide(context.Background(), a.ID, models.StatusInfoRequested, "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.Status != models.StatusInfoRequested || got.FinalDecisionDate == nil {
		t.Fatalf("expected info requested with decision date, got %+v", got)
	}
	if _, err := svc.Decide(context.Background(), a.ID, models.StatusApproved, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConfirmProvisionalOutcome(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	ctx := context.Background()

	got, err := svc.Advance(ctx, repository.SeedAppealID)
	if err != nil {
		t.Fatalf("advance seed appeal: %v", err)
	}
	if got.Status != models.StatusApproved || got.FinalDecisionDate != nil {
		t.Fatalf("seed appeal should be provisionally approved, got %+v", got)
	}

	confirmed, err := svc.Confirm(ctx, repository.SeedAppealID, "agree")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.StatusApproved || confirmed.FinalDecisionDate == nil || confirmed.ValidationResult == nil {
		t.Fatalf("expected finalized approval, got %+v", confirmed)
	}
	if _, err := svc.Confirm(ctx, repository.SeedAppealID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second confirm must fail, got %v", err)
	}
}

func TestConfirmRequiresProvisional(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	a := submit(t, svc, "CLM001")
	if _, err := svc.Confirm(context.Background(), a.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestViewsAndDashboard(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	ctx := context.Background()

	pending := submit(t, svc, "CLM001")
	review := submit(t, svc, "CLM003")
	if _, err := svc.Advance(ctx, review.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := svc.Advance(ctx, repository.SeedAppealID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	d := svc.Dashboard(ctx)
	if d.RejectedClaims != 5 || d.AppealsInProgress != 2 || d.DecisionsMade != 1 || d.AwaitingConfirmation != 1 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if got := len(svc.InProgress(ctx)); got != 3 {
		t.Fatalf("expected 3 in progress, got %d", got)
	}
	if got := len(svc.Decided(ctx)); got != 0 {
		t.Fatalf("expected nothing decided yet, got %d", got)
	}

	if _, err := svc.Confirm(ctx, repository.SeedAppealID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	decided := svc.Decided(ctx)
	if len(decided) != 1 || decided[0].ID != repository.SeedAppealID {
		t.Fatalf("expected seed appeal decided, got %+v", decided)
	}

	r, err := svc.Review(ctx, pending.ID)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if r.Claim == nil || r.Claim.ID != "CLM001" || r.State != string(models.StatusPendingValidation) {
		t.Fatalf("unexpected review %+v", r)
	}
	if len(r.Actions) != 1 || r.Actions[0] != "validate" {
		t.Fatalf("unexpected actions %v", r.Actions)
	}
}

func TestProcessPending(t *testing.T) {
	svc := newService(t, ai.MockValidator{})
	ctx := context.Background()
	for _, id := range []string{"CLM001", "CLM002", "CLM003", "CLM004"} {
		submit(t, svc, id)
	}

	summary, err := svc.ProcessPending(ctx, 2)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if summary.Counts["appeals_processed"] != 5 {
		t.Fatalf("expected 5 processed, got %v", summary.Counts["appeals_processed"])
	}
	byStatus := summary.Counts["by_status"].(map[string]int)
	if byStatus[string(models.StatusRejected)] != 2 || byStatus[string(models.StatusNeedsAgentReview)] != 2 || byStatus[string(models.StatusApproved)] != 1 {
		t.Fatalf("unexpected outcome counts %v", byStatus)
	}
	for _, a := range svc.ListAppeals(ctx) {
		if a.Status == models.StatusPendingValidation {
			t.Fatalf("appeal %s left pending", a.ID)
		}
	}

	again, err := svc.ProcessPending(ctx, 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Counts["appeals_processed"] != 0 {
		t.Fatalf("nothing should be pending on a second run")
	}
}

func TestProcessPendingCollectsFailures(t *testing.T) {
	svc := newService(t, &stubValidator{err: errors.New("model unavailable")})
	summary, err := svc.ProcessPending(context.Background(), 0)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].AppealID != repository.SeedAppealID {
		t.Fatalf("expected the seed appeal failure to be reported, got %+v", summary.Errors)
	}
}

// waitForCallers polls until n callers share the validation of id.
func waitForCallers(t *testing.T, svc *AppealService, id string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		svc.mu.Lock()
		f := svc.flights[id]
		joined := f != nil && f.waiters == n
		svc.mu.Unlock()
		if joined {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d callers on %s", n, id)
}

func TestAdvanceSurvivesFirstCallerLeaving(t *testing.T) {
	gate := newGate(result(models.RecommendApprove))
	svc := newService(t, gate)
	a := submit(t, svc, "CLM005")

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Advance(first, a.ID)
		firstErr <- err
	}()
	<-gate.started

	type outcome struct {
		appeal models.Appeal
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		got, err := svc.Advance(context.Background(), a.ID)
		second <- outcome{got, err}
	}()
	waitForCallers(t, svc, a.ID, 2)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: expected context.Canceled, got %v", err)
	}
	close(gate.release)

	got := <-second
	if got.err != nil || got.appeal.Status != models.StatusApproved {
		t.Fatalf("second caller: expected approved, got %+v (%v)", got.appeal, got.err)
	}
	if n := gate.calls.Load(); n != 1 {
		t.Fatalf("expected one validation call, got %d", n)
	}
}

func TestConcurrentDecisionsOnlyOneWins(t *testing.T) {
	svc := newService(t, &stubValidator{res: result(models.RecommendAgentReview)})
	a := submit(t, svc, "CLM003")
	if _, err := svc.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	outcomes := []models.AppealStatus{models.StatusApproved, models.StatusRejected}
	const callers = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		mu       sync.Mutex
		winners  []models.AppealStatus
		refusals int
	)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcome := outcomes[i%len(outcomes)]
			_, err := svc.Decide(context.Background(), a.ID, outcome, "decided")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, outcome)
			case errors.Is(err, ErrInvalidTransition):
				refusals++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || refusals != callers-1 {
		t.Fatalf("expected exactly one decision to land, got %d winners and %d refusals", len(winners), refusals)
	}
	stored, _ := svc.GetAppeal(context.Background(), a.ID)
	if stored.Status != winners[0] || stored.FinalDecisionDate == nil {
		t.Fatalf("stored decision %q does not match the accepted one %q", stored.Status, winners[0])
	}
}

func TestConfirmAfterDecisionIsRefused(t *testing.T) {
	svc := newService(t, &stubValidator{res: result(models.RecommendApprove)})
	a := submit(t, svc, "CLM005")
	if _, err := svc.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := svc.Decide(context.Background(), a.ID, models.StatusRejected, "override"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), a.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	stored, _ := svc.GetAppeal(context.Background(), a.ID)
	if stored.Status != models.StatusRejected || stored.AgentComments != "override" {
		t.Fatalf("terminal decision was overwritten: %+v", stored)
	}
}

func TestWaitDrainsBackgroundValidation(t *testing.T) {
	gate := newGate(result(models.RecommendApprove))
	svc := newService(t, gate)
	svc.AutoValidate = true
	a := submit(t, svc, "CLM005")
	<-gate.started

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := svc.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to time out while validation runs, got %v", err)
	}

	close(gate.release)
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	stored, _ := svc.GetAppeal(context.Background(), a.ID)
	if stored.Status != models.StatusApproved {
		t.Fatalf("expected background validation to be persisted, got %q", stored.Status)
	}
}
