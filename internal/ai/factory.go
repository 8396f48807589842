package ai

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Kind             string // mock | http | openai | anthropic
	HTTPURL          string
	AssistantBaseURL string
	AssistantModel   string
	AssistantAPIKey  string
	AnthropicAPIKey  string
	AnthropicModel   string
	Delay            time.Duration
	Timeout          time.Duration
}

// New builds the configured validator wrapped with the simulated processing
// delay and tracing.
func New(opts Options, logger zerolog.Logger) (Validator, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = "mock"
	}

	var inner Validator
	switch kind {
	case "mock":
		inner = MockValidator{}
	case "http":
		if opts.HTTPURL == "" {
			return nil, fmt.Errorf("AI_URL is required for the http validator")
		}
		inner = HTTPValidator{BaseURL: opts.HTTPURL, Client: &http.Client{Timeout: opts.Timeout}}
	case "openai":
		inner = OpenAICompatValidator{
			BaseURL:   opts.AssistantBaseURL,
			Model:     opts.AssistantModel,
			APIKey:    opts.AssistantAPIKey,
			MaxTokens: 512,
		}
	case "anthropic":
		v, err := NewAnthropicValidator(opts.AnthropicAPIKey, opts.AnthropicModel)
		if err != nil {
			return nil, err
		}
		inner = v
	default:
		return nil, fmt.Errorf("unknown validator %q", opts.Kind)
	}

	logger.Info().Str("validator", kind).Dur("simulated_delay", opts.Delay).Msg("automated validation configured")
	return Traced{
		Inner: Delayed{Inner: inner, Total: opts.Delay, Logger: logger},
		Name:  kind,
	}, nil
}
