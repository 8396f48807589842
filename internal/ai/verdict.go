package ai

import (
	"strings"

	"github.com/claimflow/backend/internal/models"
)

// VerdictKind classifies a free-form check verdict by its leading word.
// Anything unrecognized counts as Needs Review.
func VerdictKind(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.HasPrefix(s, "pass"):
		return models.VerdictPass
	case strings.HasPrefix(s, "fail"):
		return models.VerdictFail
	default:
		return models.VerdictNeedsReview
	}
}

// Aggregate derives the recommendation the checks support: any Fail rejects,
// all Pass approves, anything else goes to an agent.
func Aggregate(checks ...string) models.Recommendation {
	allPass := true
	for _, c := range checks {
		switch VerdictKind(c) {
		case models.VerdictFail:
			return models.RecommendReject
		case models.VerdictNeedsReview:
			allPass = false
		}
	}
	if allPass {
		return models.RecommendApprove
	}
	return models.RecommendAgentReview
}

// EnforceAggregation downgrades an Approve that the checks do not support.
// Reject and Needs Agent Review are left as the model chose them.
func EnforceAggregation(res models.ValidationResult) models.ValidationResult {
	if res.SummaryRecommendation == models.RecommendApprove && Aggregate(res.Checks()...) != models.RecommendApprove {
		res.SummaryRecommendation = models.RecommendAgentReview
	}
	return res
}

// ParseRecommendation accepts the three recommendations case-insensitively,
// with underscores or hyphens in place of spaces.
func ParseRecommendation(s string) (models.Recommendation, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "approve":
		return models.RecommendApprove, nil
	case "reject":
		return models.RecommendReject, nil
	case "needs agent review":
		return models.RecommendAgentReview, nil
	}
	return "", ErrInvalidRecommendation
}
