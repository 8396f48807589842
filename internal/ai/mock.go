package ai

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/claimflow/backend/internal/models"
)

var (
	defaultExcluded   = []string{"experimental", "cosmetic", "non-prescribed", "supplement"}
	defaultRestricted = []string{"out of network", "out-of-network", "certified providers", "blurry", "not itemized", "past the filing deadline"}
)

// MockValidator is a deterministic keyword and budget rule engine standing in
// for a model when none is configured.
type MockValidator struct {
	Excluded   []string
	Restricted []string
}

func (m MockValidator) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ValidationResult{}, err
	}
	excluded := m.Excluded
	if excluded == nil {
		excluded = defaultExcluded
	}
	restricted := m.Restricted
	if restricted == nil {
		restricted = defaultRestricted
	}

	narrative := strings.ToLower(req.ClaimDetails)
	hitsExcluded := containsAny(narrative, excluded)

	res := models.ValidationResult{
		PolicyTermsCheck:           models.VerdictPass,
		CoverageCheck:              models.VerdictPass,
		CostingCheck:               costingVerdict(req),
		PreviousClaimsHistoryCheck: historyVerdict(req.PreviousClaimsHistory),
	}
	switch {
	case hitsExcluded != "":
		res.PolicyTermsCheck = models.VerdictFail + ": " + hitsExcluded + " treatment is excluded by policy terms"
		res.CoverageCheck = models.VerdictFail + ": " + hitsExcluded + " items are not covered"
	case containsAny(narrative, restricted) != "":
		res.PolicyTermsCheck = models.VerdictNeedsReview + ": claim touches a restricted policy term"
	}
	res.SummaryRecommendation = Aggregate(res.Checks()...)
	return res, nil
}

func costingVerdict(req ValidationRequest) string {
	amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(req.ClaimedAmount), "$"))
	if err != nil || amount.IsNegative() {
		return models.VerdictNeedsReview + ": claimed amount could not be read"
	}
	if req.AllocatedBudget == nil {
		return models.VerdictNeedsReview + ": no allocated budget provided"
	}
	if amount.GreaterThan(*req.AllocatedBudget) {
		return models.VerdictFail + ": amount exceeds the allocated budget of " + money(*req.AllocatedBudget)
	}
	return models.VerdictPass + ": amount is within the allocated budget of " + money(*req.AllocatedBudget)
}

func historyVerdict(history string) string {
	h := strings.ToLower(history)
	switch {
	case strings.TrimSpace(h) == "":
		return models.VerdictNeedsReview
	case strings.Contains(h, "no history of fraud"):
		return models.VerdictPass
	case strings.Contains(h, "fraud") || strings.Contains(h, "suspicious"):
		return models.VerdictFail
	}
	return models.VerdictPass
}

func containsAny(s string, words []string) string {
	for _, w := range words {
		if w != "" && strings.Contains(s, strings.ToLower(w)) {
			return w
		}
	}
	return ""
}
