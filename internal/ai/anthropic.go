package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/claimflow/backend/internal/models"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

var errAPIKeyRequired = errors.New("API key required")

type AnthropicValidator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicValidator(apiKey, model string) (*AnthropicValidator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", errAPIKeyRequired)
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicValidator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: 1024,
	}, nil
}

func (a *AnthropicValidator) ValidateClaim(ctx context.Context, req ValidationRequest) (models.ValidationResult, error) {
	text, err := RenderPrompt(req)
	if err != nil {
		return models.ValidationResult{}, err
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("anthropic messages: %w", err)
	}
	if len(message.Content) == 0 {
		return models.ValidationResult{}, fmt.Errorf("%w: no content blocks", ErrMalformedReply)
	}
	content := message.Content[0]
	if content.Type != "text" {
		return models.ValidationResult{}, fmt.Errorf("%w: not a text block (type=%s)", ErrMalformedReply, content.Type)
	}
	return ParseReply(content.Text)
}
