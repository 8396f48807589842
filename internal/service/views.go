package service

import (
	"context"
	"sort"

	"github.com/claimflow/backend/internal/models"
)

type Dashboard struct {
	RejectedClaims       int         `json:"rejectedClaims"`
	AppealsInProgress    int         `json:"appealsInProgress"`
	DecisionsMade        int         `json:"decisionsMade"`
	AwaitingConfirmation int         `json:"awaitingConfirmation"`
	AgentLoads           []AgentLoad `json:"agentLoads"`
}

func (s *AppealService) Dashboard(ctx context.Context) Dashboard {
	claims := s.Repo.ListClaims(ctx)
	appeals := s.Repo.ListAppeals(ctx)

	d := Dashboard{RejectedClaims: len(claims), AgentLoads: AgentLoads(models.Agents, appeals)}
	for _, a := range appeals {
		switch a.Status {
		case models.StatusPendingValidation, models.StatusNeedsAgentReview, models.StatusInfoRequested:
			d.AppealsInProgress++
		case models.StatusApproved, models.StatusRejected:
			d.DecisionsMade++
			if a.FinalDecisionDate == nil {
				d.AwaitingConfirmation++
			}
		}
	}
	return d
}

// InProgress lists appeals still needing work: pending validation, awaiting
// an agent, info requested, or holding an unconfirmed automated outcome.
// Newest submissions come first.
func (s *AppealService) InProgress(ctx context.Context) []models.Appeal {
	return s.filter(ctx, func(a models.Appeal) bool {
		switch a.Status {
		case models.StatusPendingValidation, models.StatusNeedsAgentReview, models.StatusInfoRequested:
			return true
		case models.StatusApproved, models.StatusRejected:
			return a.FinalDecisionDate == nil
		}
		return false
	})
}

// Decided lists finalized Approved and Rejected appeals.
func (s *AppealService) Decided(ctx context.Context) []models.Appeal {
	return s.filter(ctx, func(a models.Appeal) bool {
		return (a.Status == models.StatusApproved || a.Status == models.StatusRejected) && a.FinalDecisionDate != nil
	})
}

func (s *AppealService) ListAppeals(ctx context.Context) []models.Appeal {
	return s.filter(ctx, func(models.Appeal) bool { return true })
}

func (s *AppealService) filter(ctx context.Context, keep func(models.Appeal) bool) []models.Appeal {
	out := []models.Appeal{}
	for _, a := range s.Repo.ListAppeals(ctx) {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionDate.After(out[j].SubmissionDate)
	})
	return out
}

type Review struct {
	Appeal  models.Appeal `json:"appeal"`
	Claim   *models.Claim `json:"claim,omitempty"`
	State   string        `json:"state"`
	Actions []string      `json:"actions"`
}

// Review gathers what an agent needs to act on one appeal.
func (s *AppealService) Review(ctx context.Context, id string) (Review, error) {
	appeal, state, err := s.load(ctx, id)
	if err != nil {
		return Review{}, err
	}
	r := Review{Appeal: appeal, State: describe(state), Actions: Actions(state)}
	if c, ok := s.Repo.GetClaim(ctx, appeal.ClaimID); ok {
		r.Claim = &c
	}
	return r, nil
}
