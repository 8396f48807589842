package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/claimflow/backend/internal/models"
)

const (
	SeedClaimID  = "CLM005"
	SeedAppealID = "APL-SIM001"
)

var allocationFactor = decimal.RequireFromString("1.2")

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amountPtr(s string) *decimal.Decimal {
	d := amount(s)
	return &d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeedClaims returns a fresh copy of the built-in rejected claims.
func SeedClaims() []models.Claim {
	return []models.Claim{
		{
			ID:               "CLM001",
			PolicyHolderName: "Alice Wonderland",
			RejectionReason:  "Procedure not covered under current policy terms.",
			ClaimAmount:      amount("1250.75"),
			AllocatedAmount:  amountPtr("1500"),
			RejectionDate:    day(2023, time.October, 15),
			PolicyID:         "POL9876",
			ClaimDetails:     "Claim for experimental heart surgery. Patient ID: P123. Procedure Code: XHS001.",
		},
		{
			ID:               "CLM002",
			PolicyHolderName: "Bob The Builder",
			RejectionReason:  "Claim submitted past the filing deadline.",
			ClaimAmount:      amount("300.00"),
			AllocatedAmount:  amountPtr("250"),
			RejectionDate:    day(2023, time.November, 1),
			PolicyID:         "POL5432",
			ClaimDetails:     "Claim for toolkit replacement due to accidental damage. Incident Date: 2023-05-01. Submitted: 2023-11-01.",
		},
		{
			ID:               "CLM003",
			PolicyHolderName: "Charlie Brown",
			RejectionReason:  "Insufficient documentation provided to support the claim.",
			ClaimAmount:      amount("75.50"),
			AllocatedAmount:  amountPtr("100"),
			RejectionDate:    day(2023, time.November, 20),
			PolicyID:         "POL1230",
			ClaimDetails:     "Claim for a kite repair. Photos of damage were blurry. Invoice not itemized.",
		},
		{
			ID:               "CLM004",
			PolicyHolderName: "Diana Prince",
			RejectionReason:  "Service provider out of network.",
			ClaimAmount:      amount("2400.00"),
			AllocatedAmount:  amountPtr("3000"),
			RejectionDate:    day(2023, time.December, 5),
			PolicyID:         "POL0001",
			ClaimDetails:     "Claim for invisible jet engine maintenance. Provider: Ares Mechanics. Policy requires Themyscira Certified providers.",
		},
		{
			ID:               "CLM005",
			PolicyHolderName: "Eva Evergreen",
			RejectionReason:  "Initially miscategorized, eligible for standard coverage.",
			ClaimAmount:      amount("200.00"),
			AllocatedAmount:  amountPtr("1000"),
			RejectionDate:    day(2023, time.December, 10),
			PolicyID:         "POL7788",
			ClaimDetails:     "Claim for standard dental check-up. Patient ID: P789. Procedure Code: DC001.",
		},
	}
}

// SeedAppeals returns the simulation appeal linked to the claim designed to pass.
func SeedAppeals() []models.Appeal {
	return []models.Appeal{
		{
			ID:                  SeedAppealID,
			ClaimID:             SeedClaimID,
			PolicyHolderName:    "Eva Evergreen",
			AppealReason:        "This was a standard procedure and should be covered as per my policy. The initial rejection seems to be an error.",
			SupportingDocuments: []models.Document{{Name: "dentist_invoice.pdf"}},
			SubmissionDate:      time.Date(2023, time.December, 11, 10, 0, 0, 0, time.UTC),
			Status:              models.StatusPendingValidation,
			AssignedAgent:       models.Agents[0],
		},
	}
}

// BackfillClaims fills allocatedAmount from the claim amount where it is absent.
func BackfillClaims(claims []models.Claim) []models.Claim {
	out := make([]models.Claim, len(claims))
	for i, c := range claims {
		if c.AllocatedAmount == nil {
			a := c.ClaimAmount.Mul(allocationFactor)
			c.AllocatedAmount = &a
		}
		out[i] = c
	}
	return out
}
