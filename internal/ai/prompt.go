package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/claimflow/backend/internal/models"
)

const promptTemplate = `You are an expert claim validator.
You will receive claim details, policy terms, coverage details, claimed amount, optionally an allocated budget, and previous claims history.
Check the claim against the policy terms, coverage details, costing (including claimed amount against allocated budget if provided), and previous claims history.
Give a Pass, Fail, or Needs Review status for each check. For the costing check, state whether the amount is within the allocated budget if one was provided.

Claim Details: {{.ClaimDetails}}
{{- if .AppealReason}}
Appeal Reason: {{.AppealReason}}
{{- end}}
Policy Terms: {{.PolicyTerms}}
Coverage Details: {{.CoverageDetails}}
Claimed Amount: {{.ClaimedAmount}}
{{- if .AllocatedBudget}}
Allocated Budget for this type of claim: {{.AllocatedBudget.StringFixed 2}}
{{- else}}
No specific allocated budget provided for this claim.
{{- end}}
Costing Details: {{.CostingDetails}}
Previous Claims History: {{.PreviousClaimsHistory}}

Checks:
1. Policy Terms Check: does the claim violate any policy terms?
2. Coverage Check: is the claim covered under the policy?
3. Costing Check: is the claimed amount reasonable, within policy limits, and within the allocated budget (if provided)?
4. Previous Claims History Check: does the policyholder have a history of fraudulent or suspicious claims?

Then give a summary recommendation: Approve, Reject, or Needs Agent Review.
If any check is Fail, the recommendation must be Reject or Needs Agent Review.
If all checks Pass, the recommendation should be Approve.
If some checks Pass and others Need Review, the recommendation should be Needs Agent Review.

Reply with a single JSON object and nothing else, using exactly these keys:
{"policyTermsCheck": "...", "coverageCheck": "...", "costingCheck": "...", "previousClaimsHistoryCheck": "...", "summaryRecommendation": "Approve|Reject|Needs Agent Review"}
`

var prompt = template.Must(template.New("validation").Parse(promptTemplate))

func RenderPrompt(req ValidationRequest) (string, error) {
	var buf bytes.Buffer
	if err := prompt.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render validation prompt: %w", err)
	}
	return buf.String(), nil
}

type replyBody struct {
	PolicyTermsCheck           string `json:"policyTermsCheck"`
	CoverageCheck              string `json:"coverageCheck"`
	CostingCheck               string `json:"costingCheck"`
	PreviousClaimsHistoryCheck string `json:"previousClaimsHistoryCheck"`
	SummaryRecommendation      string `json:"summaryRecommendation"`
}

// ParseReply extracts the JSON object from a model reply, tolerating code
// fences and surrounding prose, and applies EnforceAggregation.
func ParseReply(text string) (models.ValidationResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return models.ValidationResult{}, fmt.Errorf("%w: no json object", ErrMalformedReply)
	}
	var r replyBody
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return models.ValidationResult{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return resultFrom(r)
}

func resultFrom(r replyBody) (models.ValidationResult, error) {
	rec, err := ParseRecommendation(r.SummaryRecommendation)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("%w: %q", err, r.SummaryRecommendation)
	}
	res := models.ValidationResult{
		PolicyTermsCheck:           strings.TrimSpace(r.PolicyTermsCheck),
		CoverageCheck:              strings.TrimSpace(r.CoverageCheck),
		CostingCheck:               strings.TrimSpace(r.CostingCheck),
		PreviousClaimsHistoryCheck: strings.TrimSpace(r.PreviousClaimsHistoryCheck),
		SummaryRecommendation:      rec,
	}
	for _, c := range res.Checks() {
		if c == "" {
			return models.ValidationResult{}, fmt.Errorf("%w: missing check verdict", ErrMalformedReply)
		}
	}
	return EnforceAggregation(res), nil
}
