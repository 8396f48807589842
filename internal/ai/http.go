package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claimflow/backend/internal/models"
)

const maxReplyBytes = 1 << 20

// HTTPValidator posts the validation request to an external checker at
// BaseURL/validate and expects the five verdict fields back as JSON.
// One attempt per call.
type HTTPValidator struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPValidator) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return models.ValidationResult{}, err
	}
	url := strings.TrimRight(h.BaseURL, "/") + "/validate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.ValidationResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("validation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return models.ValidationResult{}, fmt.Errorf("validation service error: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var r replyBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&r); err != nil {
		return models.ValidationResult{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return resultFrom(r)
}
