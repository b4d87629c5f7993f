package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const DefaultProviderTimeout = 60 * time.Second

type ChatResult struct {
	Content       string
	ModelID       string
	VendorModelID string
	InputTokens   int
	OutputTokens  int
	TotalTokens   int
	Cost          float64
}

// ChatRouter maps a public model id to the adapter of its provider and prices the result.
type ChatRouter struct {
	registry *ModelRegistry
	adapters map[ProviderKind]ProviderAdapter
	timeout  time.Duration
}

func NewChatRouter(registry *ModelRegistry, timeout time.Duration, adapters ...ProviderAdapter) *ChatRouter {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	r := &ChatRouter{
		registry: registry,
		adapters: make(map[ProviderKind]ProviderAdapter, len(adapters)),
		timeout:  timeout,
	}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// NewChatRouterFromCredentials only constructs adapters for vendors with a key.
// The returned close func releases the Gemini client when one was created.
func NewChatRouterFromCredentials(ctx context.Context, registry *ModelRegistry, creds ProviderCredentials, timeout time.Duration) (*ChatRouter, func() error, error) {
	var adapters []ProviderAdapter
	closeFn := func() error { return nil }

	if creds.OpenAIAPIKey != "" {
		adapters = append(adapters, NewOpenAIAdapter(creds.OpenAIAPIKey, creds.OpenAIBaseURL))
	}
	if creds.AnthropicAPIKey != "" {
		adapters = append(adapters, NewAnthropicAdapter(creds.AnthropicAPIKey, creds.AnthropicBaseURL))
	}
	if creds.GoogleAPIKey != "" {
		gemini, err := NewGeminiAdapter(ctx, creds.GoogleAPIKey)
		if err != nil {
			return nil, nil, err
		}
		adapters = append(adapters, gemini)
		closeFn = gemini.Close
	}

	return NewChatRouter(registry, timeout, adapters...), closeFn, nil
}

func (r *ChatRouter) IsConfigured(kind ProviderKind) bool {
	_, ok := r.adapters[kind]
	return ok
}

// Resolve runs every precondition of Chat without calling a vendor.
func (r *ChatRouter) Resolve(modelID string) (ModelConfig, error) {
	cfg, err := r.registry.Resolve(modelID)
	if err != nil {
		return ModelConfig{}, err
	}
	if !r.IsConfigured(cfg.Provider) {
		return ModelConfig{}, &ModelError{ID: cfg.ID, Err: ErrProviderUnconfigured}
	}
	return cfg, nil
}

func (r *ChatRouter) AvailableModels() []ModelConfig {
	return r.registry.ListAvailable(r.IsConfigured)
}

func (r *ChatRouter) DefaultModel() string {
	return DefaultModelID
}

func (r *ChatRouter) Chat(ctx context.Context, modelID string, messages []ChatMessage, systemPrompt string) (*ChatResult, error) {
	cfg, err := r.Resolve(modelID)
	if err != nil {
		return nil, err
	}
	adapter := r.adapters[cfg.Provider]

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := zerolog.Ctx(ctx)
	started := time.Now()
	res, err := adapter.Send(callCtx, ProviderRequest{
		VendorModelID: cfg.VendorModelID,
		MaxTokens:     cfg.MaxTokens,
		SystemPrompt:  systemPrompt,
		Messages:      messages,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			logger.Warn().Str("model", modelID).Dur("timeout", r.timeout).Msg("Provider call timed out")
			return nil, fmt.Errorf("%w: %s after %s", ErrProviderTimeout, cfg.Provider, r.timeout)
		}
		var perr *ProviderError
		if !errors.As(err, &perr) {
			err = newProviderError(cfg.Provider, err)
		}
		return nil, err
	}

	logger.Debug().
		Str("model", modelID).
		Int("input_tokens", res.InputTokens).
		Int("output_tokens", res.OutputTokens).
		Dur("latency", time.Since(started)).
		Msg("Provider call completed")

	return &ChatResult{
		Content:       res.Text,
		ModelID:       cfg.ID,
		VendorModelID: cfg.VendorModelID,
		InputTokens:   res.InputTokens,
		OutputTokens:  res.OutputTokens,
		TotalTokens:   res.InputTokens + res.OutputTokens,
		Cost:          cfg.Cost(res.InputTokens, res.OutputTokens),
	}, nil
}
