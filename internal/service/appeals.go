// Package service drives appeals through their lifecycle: submission, agent
// assignment, automated validation and agent decisions.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/claimflow/backend/internal/ai"
	"github.com/claimflow/backend/internal/metrics"
	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/repository"
)

var (
	ErrAppealNotFound = repository.ErrAppealNotFound
	ErrClaimNotFound  = errors.New("claim not found")
)

const appealIDPrefix = "APL-"

// NewAppealID returns a collision-resistant appeal id.
func NewAppealID() string {
	return appealIDPrefix + ulid.Make().String()
}

type AppealService struct {
	Repo      *repository.Repository
	Validator ai.Validator
	Policies  ai.PolicyCatalog
	Logger    zerolog.Logger

	// Timeout bounds one automated validation. Zero means no limit.
	Timeout time.Duration
	// AutoValidate starts validation in the background after Submit.
	AutoValidate bool
	Now          func() time.Time

	inflight   singleflight.Group
	mu         sync.Mutex
	flights    map[string]*flight
	background sync.WaitGroup
}

// flight is one shared validation run. It is cancelled once every caller
// waiting on it has gone away.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type SubmitInput struct {
	ClaimID      string
	AppealReason string
	Documents    []models.Document
}

func (s *AppealService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit files a new appeal for an existing claim in Pending Validation and
// assigns it to the least-loaded agent.
func (s *AppealService) Submit(ctx context.Context, in SubmitInput) (models.Appeal, error) {
	claim, ok := s.Repo.GetClaim(ctx, in.ClaimID)
	if !ok {
		return models.Appeal{}, fmt.Errorf("%w: %s", ErrClaimNotFound, in.ClaimID)
	}

	id := NewAppealID()
	agent, _ := PickAgent(id, AgentLoads(models.Agents, s.Repo.ListAppeals(ctx)))

	appeal := apply(models.Appeal{
		ID:                  id,
		ClaimID:             claim.ID,
		PolicyHolderName:    claim.PolicyHolderName,
		AppealReason:        strings.TrimSpace(in.AppealReason),
		SupportingDocuments: in.Documents,
		SubmissionDate:      s.now(),
		AssignedAgent:       agent.Agent,
	}, PendingValidation{})

	if err := s.Repo.InsertAppeal(ctx, appeal); err != nil {
		return models.Appeal{}, fmt.Errorf("submit appeal: %w", err)
	}
	metrics.RecordTransition("", string(appeal.Status))
	s.Logger.Info().
		Str("appeal_id", appeal.ID).
		Str("claim_id", claim.ID).
		Str("agent", appeal.AssignedAgent).
		Msg("appeal submitted")

	if s.AutoValidate {
		s.dispatch(appeal.ID)
	}
	return appeal, nil
}

// dispatch advances id in the background, detached from the caller's context.
func (s *AppealService) dispatch(id string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.Advance(context.Background(), id); err != nil {
			s.Logger.Error().Err(err).Str("appeal_id", id).Msg("background validation failed")
		}
	}()
}

// Wait blocks until background validations started by Submit have finished
// or ctx is done.
func (s *AppealService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Advance runs automated validation for a Pending Validation appeal and
// persists the resulting state. Concurrent calls for one id share a single
// validation, which keeps running while at least one caller still waits.
// A failed validation moves the appeal to Needs Agent Review.
func (s *AppealService) Advance(ctx context.Context, id string) (models.Appeal, error) {
	f, ch := s.join(ctx, id)
	select {
	case res := <-ch:
		s.leave(id, f, false)
		if res.Shared {
			s.Logger.Debug().Str("appeal_id", id).Msg("joined in-flight validation")
		}
		if res.Err != nil {
			return models.Appeal{}, res.Err
		}
		return res.Val.(models.Appeal), nil
	case <-ctx.Done():
		s.leave(id, f, true)
		return models.Appeal{}, ctx.Err()
	}
}

func (s *AppealService) join(ctx context.Context, id string) (*flight, <-chan singleflight.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flights == nil {
		s.flights = make(map[string]*flight)
	}
	f := s.flights[id]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[id] = f
	}
	f.waiters++
	return f, s.inflight.DoChan(id, func() (any, error) {
		return s.advance(f.ctx, id)
	})
}

func (s *AppealService) leave(id string, f *flight, abandoned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	if s.flights[id] == f {
		delete(s.flights, id)
	}
	if abandoned {
		// later callers start a fresh run instead of joining the cancelled one
		s.inflight.Forget(id)
	}
	f.cancel()
}

func (s *AppealService) advance(ctx context.Context, id string) (models.Appeal, error) {
	appeal, state, err := s.load(ctx, id)
	if err != nil {
		return models.Appeal{}, err
	}
	if _, ok := state.(PendingValidation); !ok {
		return models.Appeal{}, fmt.Errorf("%w: appeal %s is %q, not pending validation", ErrInvalidTransition, id, describe(state))
	}

	res, verr := s.validate(ctx, appeal)
	if verr != nil && ctx.Err() != nil {
		// Every caller went away. The appeal stays pending and is retried later.
		return models.Appeal{}, ctx.Err()
	}

	saved, err := s.transition(ctx, id, func(a *models.Appeal, state State) (State, error) {
		// The appeal may have been decided while the validator was running.
		if _, ok := state.(PendingValidation); !ok {
			return nil, errStaleResult
		}
		if verr != nil {
			a.ValidationError = verr.Error()
			return AwaitingAgent{}, nil
		}
		a.ValidationError = ""
		return afterValidation(res), nil
	})
	if errors.Is(err, errStaleResult) {
		current, gerr := s.GetAppeal(ctx, id)
		if gerr != nil {
			return models.Appeal{}, gerr
		}
		s.Logger.Info().Str("appeal_id", id).Str("status", string(current.Status)).Msg("discarding stale validation result")
		return current, nil
	}
	if err != nil {
		return models.Appeal{}, err
	}
	if verr != nil {
		s.Logger.Warn().Err(verr).Str("appeal_id", id).Msg("automated validation failed, routing to agent review")
	}
	return saved, nil
}

var errStaleResult = errors.New("appeal left pending validation")

func (s *AppealService) validate(ctx context.Context, appeal models.Appeal) (models.ValidationResult, error) {
	if s.Validator == nil {
		return models.ValidationResult{}, errors.New("no validator configured")
	}
	claim, ok := s.Repo.GetClaim(ctx, appeal.ClaimID)
	if !ok {
		return models.ValidationResult{}, fmt.Errorf("%w: %s", ErrClaimNotFound, appeal.ClaimID)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req := ai.BuildRequest(claim, appeal, s.Policies.Lookup(claim.PolicyID))
	res, err := s.Validator.ValidateClaim(ctx, req)
	if err != nil {
		return models.ValidationResult{}, err
	}
	s.Logger.Info().
		Str("appeal_id", appeal.ID).
		Str("recommendation", string(res.SummaryRecommendation)).
		Msg("automated validation complete")
	return res, nil
}

// Decide records an agent decision of Approved, Rejected or Info Requested.
func (s *AppealService) Decide(ctx context.Context, id string, outcome models.AppealStatus, comments string) (models.Appeal, error) {
	at := s.now()
	comments = strings.TrimSpace(comments)
	saved, err := s.transition(ctx, id, func(_ *models.Appeal, state State) (State, error) {
		return decide(state, outcome, comments, at)
	})
	if err != nil {
		return models.Appeal{}, err
	}
	s.Logger.Info().Str("appeal_id", id).Str("decision", string(outcome)).Msg("agent decision recorded")
	return saved, nil
}

// Confirm finalizes a provisional automated outcome.
func (s *AppealService) Confirm(ctx context.Context, id, comments string) (models.Appeal, error) {
	at := s.now()
	comments = strings.TrimSpace(comments)
	return s.transition(ctx, id, func(_ *models.Appeal, state State) (State, error) {
		return confirm(state, comments, at)
	})
}

func (s *AppealService) load(ctx context.Context, id string) (models.Appeal, State, error) {
	appeal, ok := s.Repo.GetAppeal(ctx, id)
	if !ok {
		return models.Appeal{}, nil, fmt.Errorf("%w: %s", ErrAppealNotFound, id)
	}
	state, err := StateOf(appeal)
	if err != nil {
		return models.Appeal{}, nil, err
	}
	return appeal, state, nil
}

// transition decodes the stored appeal, asks step for the next state and
// persists it in one locked repository update, so two callers can never
// both move the same appeal out of one state. step may adjust flat fields
// on the appeal that the state does not carry.
func (s *AppealService) transition(ctx context.Context, id string, step func(*models.Appeal, State) (State, error)) (models.Appeal, error) {
	var from, to State
	updated, err := s.Repo.UpdateAppealIf(ctx, id, func(current models.Appeal) (models.Appeal, error) {
		state, err := StateOf(current)
		if err != nil {
			return models.Appeal{}, err
		}
		next, err := step(&current, state)
		if err != nil {
			if errors.Is(err, errStaleResult) {
				return models.Appeal{}, err
			}
			return models.Appeal{}, fmt.Errorf("appeal %s: %w", id, err)
		}
		from, to = state, next
		return apply(current, next), nil
	})
	if err != nil {
		return models.Appeal{}, err
	}
	metrics.RecordTransition(string(from.Status()), string(to.Status()))
	return updated, nil
}

func (s *AppealService) GetAppeal(ctx context.Context, id string) (models.Appeal, error) {
	a, ok := s.Repo.GetAppeal(ctx, id)
	if !ok {
		return models.Appeal{}, fmt.Errorf("%w: %s", ErrAppealNotFound, id)
	}
	return a, nil
}

func (s *AppealService) GetClaim(ctx context.Context, id string) (models.Claim, error) {
	c, ok := s.Repo.GetClaim(ctx, id)
	if !ok {
		return models.Claim{}, fmt.Errorf("%w: %s", ErrClaimNotFound, id)
	}
	return c, nil
}
