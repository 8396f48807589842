package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimflow/backend/internal/models"
)

// ProcessingSteps are the review stages the service simulates before asking
// the model, with their relative weight of the total delay.
var ProcessingSteps = []struct {
	Name   string
	Weight int
}{
	{"initial claim data ingestion and parsing", 2},
	{"reviewing against policy documents", 3},
	{"checking coverage details and exclusions", 2},
	{"adjusting against entitlement based on policy terms", 3},
}

// Delayed spreads Total across ProcessingSteps before delegating to Inner.
type Delayed struct {
	Inner  Validator
	Total  time.Duration
	Logger zerolog.Logger
}

func (d Delayed) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	if d.Total > 0 {
		weights := 0
		for _, s := range ProcessingSteps {
			weights += s.Weight
		}
		for i, s := range ProcessingSteps {
			d.Logger.Debug().Str("claim_id", req.ClaimID).Int("step", i+1).Msg(s.Name)
			pause := d.Total * time.Duration(s.Weight) / time.Duration(weights)
			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return models.ValidationResult{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return d.Inner.ValidateClaim(ctx, req)
}
