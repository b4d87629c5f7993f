package services

import (
	"context"

	"launchpad_go_backend/internal/models"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter builds a client with SDK retries disabled; the router owns the deadline.
func NewOpenAIAdapter(apiKey, baseURL string) *OpenAIAdapter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...)}
}

func (a *OpenAIAdapter) Kind() ProviderKind {
	return ProviderOpenAI
}

func (a *OpenAIAdapter) Send(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:     req.VendorModelID,
		Messages:  toOpenAIMessages(req.SystemPrompt, req.Messages),
		MaxTokens: openai.Int(int64(req.MaxTokens)),
	}

	res, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, newProviderError(ProviderOpenAI, err)
	}
	if len(res.Choices) == 0 {
		return nil, newProviderError(ProviderOpenAI, ErrEmptyProviderResponse)
	}

	return &ProviderResponse{
		Text:         res.Choices[0].Message.Content,
		InputTokens:  int(res.Usage.PromptTokens),
		OutputTokens: int(res.Usage.CompletionTokens),
	}, nil
}

func toOpenAIMessages(systemPrompt string, history []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		if m.Role == models.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Content))
	}
	return messages
}
