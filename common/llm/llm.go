package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
)

// Provider constants for completion provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds completion provider configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g. "gpt-4o-mini", "claude-sonnet-4-5-20250514")
}

// Client is the text-in/text-out completion contract the pipeline consumes.
// Structured output is requested via the prompt (see GenerateSchema); callers
// parse the returned text defensively rather than relying on provider-side
// schema enforcement.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request is one completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

// Response carries the raw completion text and token usage.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// NewClient selects a provider implementation from cfg.Provider.
// Defaults to OpenAI when no provider is specified.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", provider)
	}
}

const maxCompleteAttempts = 3

var retryBackoff = time.Second

// CompleteWithRetry calls Complete with exponential backoff (1s, 2s) to ride
// out transient rate limits and server errors. Non-retryable errors return
// immediately; after 3 attempts the last error is returned.
func CompleteWithRetry(ctx context.Context, c Client, req Request) (*Response, error) {
	var resp *Response
	var err error

	for attempt := 0; attempt < maxCompleteAttempts; attempt++ {
		if attempt > 0 {
			slog.WarnContext(ctx, "retrying llm completion",
				"model", c.Model(),
				"attempt", attempt+1,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * retryBackoff):
			}
		}

		resp, err = c.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(ctx, err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("llm completion after %d attempts: %w", maxCompleteAttempts, err)
}

// GenerateSchema produces a JSON schema for T, used to describe the expected
// response shape inside prompts.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp is a helper for setting Request.Temperature inline.
func Temp(t float64) *float64 {
	return &t
}
