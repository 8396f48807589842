// Package ai scores appeals against policy, coverage, costing and history
// checks by delegating to a generative-text service.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/claimflow/backend/internal/models"
)

var (
	// ErrInvalidRecommendation is returned when a model reply carries a
	// recommendation outside Approve / Reject / Needs Agent Review.
	ErrInvalidRecommendation = errors.New("invalid summary recommendation")
	ErrMalformedReply        = errors.New("malformed validation reply")
)

type Validator interface {
	ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error)
}

type ValidationRequest struct {
	ClaimID               string           `json:"claim_id"`
	ClaimDetails          string           `json:"claim_details"`
	AppealReason          string           `json:"appeal_reason,omitempty"`
	PolicyTerms           string           `json:"policy_terms"`
	CoverageDetails       string           `json:"coverage_details"`
	ClaimedAmount         string           `json:"claimed_amount"`
	AllocatedBudget       *decimal.Decimal `json:"allocated_budget,omitempty"`
	CostingDetails        string           `json:"costing_details"`
	PreviousClaimsHistory string           `json:"previous_claims_history"`
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// BuildRequest assembles the validation input for an appeal of claim under policy.
func BuildRequest(claim models.Claim, appeal models.Appeal, policy PolicyText) ValidationRequest {
	details := strings.TrimSpace(claim.ClaimDetails)
	if details == "" {
		details = fmt.Sprintf("Claim ID %s, Amount: %s, Policy Holder: %s. Rejection Reason: %s. Appealed with reason: %s",
			claim.ID, money(claim.ClaimAmount), claim.PolicyHolderName, claim.RejectionReason, appeal.AppealReason)
	}

	costing := fmt.Sprintf("Claim Amount: %s. Submitted for appeal.", money(claim.ClaimAmount))
	if claim.AllocatedAmount != nil {
		costing = fmt.Sprintf("Claim Amount: %s. Allocated budget for this claim type: %s. Submitted for appeal.",
			money(claim.ClaimAmount), money(*claim.AllocatedAmount))
	}

	return ValidationRequest{
		ClaimID:               claim.ID,
		ClaimDetails:          details,
		AppealReason:          appeal.AppealReason,
		PolicyTerms:           policy.Terms,
		CoverageDetails:       policy.Coverage,
		ClaimedAmount:         money(claim.ClaimAmount),
		AllocatedBudget:       claim.AllocatedAmount,
		CostingDetails:        costing,
		PreviousClaimsHistory: policy.History,
	}
}
