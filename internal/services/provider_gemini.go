package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchpad_go_backend/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiAdapter struct {
	client *genai.Client
}

// NewGeminiAdapter passes extra options through to the genai client, e.g. a custom endpoint.
func NewGeminiAdapter(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiAdapter{client: client}, nil
}

func (a *GeminiAdapter) Close() error {
	return a.client.Close()
}

func (a *GeminiAdapter) Kind() ProviderKind {
	return ProviderGoogle
}

func (a *GeminiAdapter) Send(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	history, last, err := toGeminiHistory(req.Messages)
	if err != nil {
		return nil, newProviderError(ProviderGoogle, err)
	}

	model := a.client.GenerativeModel(req.VendorModelID)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, newProviderError(ProviderGoogle, err)
	}

	text := geminiResponseText(resp)
	if text == "" {
		return nil, newProviderError(ProviderGoogle, ErrEmptyProviderResponse)
	}

	out := &ProviderResponse{Text: text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// toGeminiHistory splits the transcript into prior turns and the message to send.
// Gemini names the assistant role "model".
func toGeminiHistory(messages []ChatMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.New("no messages to send")
	}
	last := messages[len(messages)-1]
	if last.Role != models.RoleUser {
		return nil, "", errors.New("last message must come from the user")
	}

	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, last.Content, nil
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
