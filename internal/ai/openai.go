package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/claimflow/backend/internal/models"
)

// OpenAICompatValidator asks any OpenAI-compatible chat-completions endpoint
// for a JSON verdict.
type OpenAICompatValidator struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Client    *http.Client
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o OpenAICompatValidator) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	if strings.TrimSpace(o.BaseURL) == "" {
		return models.ValidationResult{}, fmt.Errorf("ASSISTANT_BASE_URL is not set")
	}
	if strings.TrimSpace(o.Model) == "" {
		return models.ValidationResult{}, fmt.Errorf("ASSISTANT_MODEL is not set")
	}

	text, err := RenderPrompt(req)
	if err != nil {
		return models.ValidationResult{}, err
	}

	payload := struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Messages    []chatMessage `json:"messages"`
	}{
		Model:     o.Model,
		MaxTokens: o.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: text}},
	}

	b, _ := json.Marshal(payload)
	url := strings.TrimRight(o.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return models.ValidationResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(o.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		timeout := 45 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ValidationResult{}, fmt.Errorf("assistant request timed out: %w", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return models.ValidationResult{}, fmt.Errorf("assistant request timed out: %w", err)
		}
		return models.ValidationResult{}, fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return models.ValidationResult{}, RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
		}
		return models.ValidationResult{}, fmt.Errorf("assistant http error: %s: %v", resp.Status, errBody)
	}

	var res struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.ValidationResult{}, err
	}
	if len(res.Choices) == 0 {
		return models.ValidationResult{}, fmt.Errorf("empty assistant response")
	}
	return ParseReply(res.Choices[0].Message.Content)
}

func retryAfter(h string) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if d, err := time.ParseDuration(h + "s"); err == nil {
		return d
	}
	if t, err := http.ParseTime(h); err == nil {
		return time.Until(t)
	}
	return 0
}
