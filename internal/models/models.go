package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are persisted as JSON numbers, matching the stored layout.
	decimal.MarshalJSONWithoutQuotes = true
}

type AppealStatus string

const (
	StatusPendingValidation AppealStatus = "Pending Validation"
	StatusNeedsAgentReview  AppealStatus = "Needs Agent Review"
	StatusApproved          AppealStatus = "Approved"
	StatusRejected          AppealStatus = "Rejected"
	StatusInfoRequested     AppealStatus = "Info Requested"
)

// Outcome reports whether the status can carry a final decision.
func (s AppealStatus) Outcome() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusInfoRequested:
		return true
	}
	return false
}

// Valid reports whether s is one of the five lifecycle statuses.
func (s AppealStatus) Valid() bool {
	return s == StatusPendingValidation || s == StatusNeedsAgentReview || s.Outcome()
}

type Recommendation string

const (
	RecommendApprove     Recommendation = "Approve"
	RecommendReject      Recommendation = "Reject"
	RecommendAgentReview Recommendation = "Needs Agent Review"
)

const (
	VerdictPass        = "Pass"
	VerdictFail        = "Fail"
	VerdictNeedsReview = "Needs Review"
)

type Claim struct {
	ID               string           `json:"id"`
	PolicyHolderName string           `json:"policyHolderName"`
	RejectionReason  string           `json:"rejectionReason"`
	ClaimAmount      decimal.Decimal  `json:"claimAmount"`
	AllocatedAmount  *decimal.Decimal `json:"allocatedAmount,omitempty"`
	RejectionDate    time.Time        `json:"rejectionDate"`
	PolicyID         string           `json:"policyId"`
	ClaimDetails     string           `json:"claimDetails"`
}

type Document struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

type ValidationResult struct {
	PolicyTermsCheck           string         `json:"policyTermsCheck"`
	CoverageCheck              string         `json:"coverageCheck"`
	CostingCheck               string         `json:"costingCheck"`
	PreviousClaimsHistoryCheck string         `json:"previousClaimsHistoryCheck"`
	SummaryRecommendation      Recommendation `json:"summaryRecommendation"`
}

// Checks returns the four verdicts in prompt order.
func (v ValidationResult) Checks() []string {
	return []string{v.PolicyTermsCheck, v.CoverageCheck, v.CostingCheck, v.PreviousClaimsHistoryCheck}
}

type Appeal struct {
	ID                  string            `json:"id"`
	ClaimID             string            `json:"claimId"`
	PolicyHolderName    string            `json:"policyHolderName"`
	AppealReason        string            `json:"appealReason"`
	SupportingDocuments []Document        `json:"supportingDocuments,omitempty"`
	SubmissionDate      time.Time         `json:"submissionDate"`
	Status              AppealStatus      `json:"status"`
	AssignedAgent       string            `json:"assignedAgent,omitempty"`
	ValidationResult    *ValidationResult `json:"validationResult,omitempty"`
	ValidationError     string            `json:"validationError,omitempty"`
	AgentComments       string            `json:"agentComments,omitempty"`
	FinalDecisionDate   *time.Time        `json:"finalDecisionDate,omitempty"`
}

// Agents is the fixed review roster.
var Agents = []string{"Agent Smith", "Agent Jones", "Agent Brown", "Agent Davis"}
