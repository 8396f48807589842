package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/claimflow/backend/internal/metrics"
	"github.com/claimflow/backend/internal/models"
)

const tracerName = "github.com/claimflow/backend/internal/ai"

// Traced records a span and Prometheus metrics around every validation call.
type Traced struct {
	Inner Validator
	Name  string
}

func (t Traced) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "claimflow.validate_claim")
	defer span.End()
	span.SetAttributes(
		attribute.String("claimflow.validator", t.Name),
		attribute.String("claimflow.claim_id", req.ClaimID),
	)

	start := time.Now()
	res, err := t.Inner.ValidateClaim(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordValidation(t.Name, "error", elapsed)
		return res, err
	}
	span.SetAttributes(attribute.String("claimflow.recommendation", string(res.SummaryRecommendation)))
	metrics.RecordValidation(t.Name, string(res.SummaryRecommendation), elapsed)
	return res, nil
}
