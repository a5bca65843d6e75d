// Package llm provides generation backend interfaces and implementations.
package llm

import (
	"context"
)

// StreamCallback is called for each text fragment during streaming, in
// production order. Returning an error cancels the stream.
type StreamCallback func(fragment string, index int) error

// ChatMessage is one context-window entry in provider-neutral form.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest carries a persona's configuration plus the resolved
// context window and new user message.
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	TopP         float64
	MaxTokens    int
	Messages     []ChatMessage
}

// GenerationResult is the completed response. Token counts are zero when
// the provider stream does not report usage; callers estimate in that case.
type GenerationResult struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for generation backend providers.
type Client interface {
	// Complete sends a blocking completion request.
	Complete(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)

	// CompleteStream sends a streaming completion request. Cancellation of
	// ctx stops the provider stream promptly.
	CompleteStream(ctx context.Context, req *GenerationRequest, callback StreamCallback) (*GenerationResult, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of generation backend provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new generation backend client for the provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
