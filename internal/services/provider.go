package services

import (
	"context"
	"errors"
	"fmt"

	"launchpad_go_backend/internal/models"
)

// ProviderKind is the closed set of AI vendors the router can dispatch to.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderGoogle    ProviderKind = "google"
)

var (
	ErrUnknownModel          = errors.New("unknown model")
	ErrProviderUnconfigured  = errors.New("provider is not configured")
	ErrProviderTimeout       = errors.New("provider call timed out")
	ErrEmptyProviderResponse = errors.New("provider returned no content")
)

// ModelError ties a model lookup failure to the requested public model id.
type ModelError struct {
	ID  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.ID)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ChatMessage is one prior turn replayed to a provider. System prompts travel separately.
type ChatMessage struct {
	Role    models.MessageRole
	Content string
}

type ProviderRequest struct {
	VendorModelID string
	MaxTokens     int
	SystemPrompt  string
	Messages      []ChatMessage
}

type ProviderResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// ProviderAdapter translates a canonical request into one vendor API call.
type ProviderAdapter interface {
	Kind() ProviderKind
	Send(ctx context.Context, req ProviderRequest) (*ProviderResponse, error)
}

// ProviderError wraps any failure reported by a vendor or its transport.
type ProviderError struct {
	Provider ProviderKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(kind ProviderKind, err error) *ProviderError {
	return &ProviderError{Provider: kind, Message: err.Error(), Err: err}
}

// ProviderCredentials decides which adapters exist. An empty key means the vendor is absent.
type ProviderCredentials struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	GoogleAPIKey     string
}
