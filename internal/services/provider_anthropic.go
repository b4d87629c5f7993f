package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicAdapter talks to the Messages API over plain HTTP.
type AnthropicAdapter struct {
	client *resty.Client
}

func NewAnthropicAdapter(apiKey, baseURL string) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicAPIVersion).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	return &AnthropicAdapter{client: client}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicAdapter) Kind() ProviderKind {
	return ProviderAnthropic
}

func (a *AnthropicAdapter) Send(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	body := anthropicRequest{
		Model:     req.VendorModelID,
		MaxTokens: req.MaxTokens,
		System:    req.SystemPrompt,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	var result anthropicResponse
	var apiErr anthropicErrorResponse
	res, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/messages")
	if err != nil {
		return nil, newProviderError(ProviderAnthropic, err)
	}
	if res.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = res.Status()
		}
		return nil, newProviderError(ProviderAnthropic, fmt.Errorf("status %d: %s", res.StatusCode(), msg))
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, newProviderError(ProviderAnthropic, ErrEmptyProviderResponse)
	}

	return &ProviderResponse{
		Text:         text.String(),
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}
