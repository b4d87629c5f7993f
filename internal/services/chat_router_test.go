package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChatRouter_ChatComputesCost(t *testing.T) {
	anthropic := &MockProviderAdapter{kind: ProviderAnthropic}
	router := NewChatRouter(NewModelRegistry(), time.Second, anthropic)

	history := []ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "how are you?"},
	}
	anthropic.On("Send", mock.Anything, mock.MatchedBy(func(req ProviderRequest) bool {
		return req.VendorModelID == "claude-3-5-sonnet-20241022" &&
			req.MaxTokens == 4096 &&
			req.SystemPrompt == "be nice" &&
			len(req.Messages) == 3
	})).Return(&ProviderResponse{Text: "fine", InputTokens: 1000, OutputTokens: 500}, nil).Once()

	res, err := router.Chat(context.Background(), "claude-3-5-sonnet", history, "be nice")
	require.NoError(t, err)
	assert.Equal(t, "fine", res.Content)
	assert.Equal(t, "claude-3-5-sonnet", res.ModelID)
	assert.Equal(t, "claude-3-5-sonnet-20241022", res.VendorModelID)
	assert.Equal(t, 1500, res.TotalTokens)
	assert.InDelta(t, 0.003+0.0075, res.Cost, 1e-12)
	anthropic.AssertExpectations(t)
}

func TestChatRouter_UnknownModelNeverReachesAdapter(t *testing.T) {
	openai := &MockProviderAdapter{kind: ProviderOpenAI}
	router := NewChatRouter(NewModelRegistry(), time.Second, openai)

	_, err := router.Chat(context.Background(), "not-a-model", nil, "")
	assert.ErrorIs(t, err, ErrUnknownModel)
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "not-a-model", modelErr.ID)
	openai.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestChatRouter_UnconfiguredProviderPerformsNoCall(t *testing.T) {
	openai := &MockProviderAdapter{kind: ProviderOpenAI}
	router := NewChatRouter(NewModelRegistry(), time.Second, openai)

	_, err := router.Chat(context.Background(), "gemini-1.5-pro", []ChatMessage{{Role: models.RoleUser, Content: "x"}}, "")
	assert.ErrorIs(t, err, ErrProviderUnconfigured)
	openai.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	_, err = router.Resolve("gemini-1.5-pro")
	assert.ErrorIs(t, err, ErrProviderUnconfigured)
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "gemini-1.5-pro", modelErr.ID)
}

func TestChatRouter_TimeoutIsTyped(t *testing.T) {
	openai := &MockProviderAdapter{kind: ProviderOpenAI}
	router := NewChatRouter(NewModelRegistry(), 20*time.Millisecond, openai)

	openai.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, newProviderError(ProviderOpenAI, context.DeadlineExceeded)).Once()

	_, err := router.Chat(context.Background(), "gpt-4o", []ChatMessage{{Role: models.RoleUser, Content: "x"}}, "")
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestChatRouter_ProviderErrorIsWrapped(t *testing.T) {
	openai := &MockProviderAdapter{kind: ProviderOpenAI}
	router := NewChatRouter(NewModelRegistry(), time.Second, openai)

	openai.On("Send", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := router.Chat(context.Background(), "gpt-4o-mini", []ChatMessage{{Role: models.RoleUser, Content: "x"}}, "")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderOpenAI, perr.Provider)
	assert.NotErrorIs(t, err, ErrProviderTimeout)
}

func TestChatRouter_AvailableModelsFollowsCredentials(t *testing.T) {
	router, closeFn, err := NewChatRouterFromCredentials(context.Background(), NewModelRegistry(), ProviderCredentials{
		AnthropicAPIKey: "sk-ant-test",
	}, 0)
	require.NoError(t, err)
	defer closeFn()

	var ids []string
	for _, m := range router.AvailableModels() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"claude-3-5-haiku", "claude-3-5-sonnet", "claude-3-opus"}, ids)
	assert.Equal(t, DefaultModelID, router.DefaultModel())
	assert.False(t, router.IsConfigured(ProviderOpenAI))
}
