package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"launchpad_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type chatServiceFixture struct {
	service *ChatService
	store   ChatServiceDB
	router  *MockModelRouter
	events  *recordingPublisher
}

func newChatServiceFixture(t *testing.T, userIDs ...string) *chatServiceFixture {
	t.Helper()
	db := newTestDB(t)
	for _, id := range userIDs {
		createTestUser(t, db, id)
	}
	store := NewChatServiceDB(db)
	router := new(MockModelRouter)
	router.On("DefaultModel").Return(DefaultModelID).Maybe()
	events := &recordingPublisher{}
	return &chatServiceFixture{
		service: NewChatService(store, router, events),
		store:   store,
		router:  router,
		events:  events,
	}
}

func TestChatService_SendMessageNewConversation(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")
	ctx := context.Background()
	longMessage := strings.Repeat("x", 60)

	f.router.On("Resolve", DefaultModelID).Return(ModelConfig{ID: DefaultModelID}, nil).Once()
	f.router.On("Chat", mock.Anything, DefaultModelID, []ChatMessage{{Role: models.RoleUser, Content: longMessage}}, systemPrompt).
		Return(&ChatResult{Content: "answer", ModelID: DefaultModelID, InputTokens: 10, OutputTokens: 5, TotalTokens: 15, Cost: 0.000075}, nil).Once()

	res, err := f.service.SendMessage(ctx, "user-1", SendMessageRequest{Message: longMessage})
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Message)
	assert.Equal(t, DefaultModelID, res.Model)
	assert.Equal(t, 15, res.Usage.TotalTokens)
	assert.InDelta(t, 0.000075, res.Usage.Cost, 1e-12)

	convID := uuid.MustParse(res.ConversationID)
	conv, err := f.store.GetFullConversation(ctx, convID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", TitleMaxLength), conv.Title)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, models.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, 15, conv.Messages[1].TokensUsed)
	require.NotNil(t, conv.Messages[1].Model)
	assert.Equal(t, DefaultModelID, *conv.Messages[1].Model)

	require.Len(t, f.events.topics, 1)
	assert.Equal(t, ConversationTopic("user-1"), f.events.topics[0])
	f.router.AssertExpectations(t)
}

func TestChatService_SendMessageReplaysHistory(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")
	ctx := context.Background()

	convID, err := f.store.CreateConversation(ctx, "user-1", "ongoing")
	require.NoError(t, err)
	for i := 0; i < 24; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := f.store.AppendMessage(ctx, AppendMessageParams{ConversationID: convID, Role: role, Content: fmt.Sprintf("m%02d", i)})
		require.NoError(t, err)
	}

	var sent []ChatMessage
	f.router.On("Resolve", "claude-3-opus").Return(ModelConfig{ID: "claude-3-opus"}, nil).Once()
	f.router.On("Chat", mock.Anything, "claude-3-opus", mock.Anything, systemPrompt).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]ChatMessage) }).
		Return(&ChatResult{Content: "ok", ModelID: "claude-3-opus"}, nil).Once()

	_, err = f.service.SendMessage(ctx, "user-1", SendMessageRequest{Message: "latest", ConversationID: convID.String(), Model: "claude-3-opus"})
	require.NoError(t, err)

	require.Len(t, sent, HistoryLimit+1)
	assert.Equal(t, "m04", sent[0].Content)
	assert.Equal(t, "m23", sent[HistoryLimit-1].Content)
	assert.Equal(t, ChatMessage{Role: models.RoleUser, Content: "latest"}, sent[HistoryLimit])
}

func TestChatService_UserMessageSurvivesProviderFailure(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")
	ctx := context.Background()

	f.router.On("Resolve", "gpt-4o-mini").Return(ModelConfig{ID: "gpt-4o-mini"}, nil).Once()
	f.router.On("Chat", mock.Anything, "gpt-4o-mini", mock.Anything, systemPrompt).
		Return(nil, &ProviderError{Provider: ProviderOpenAI, Message: "boom", Err: errors.New("boom")}).Once()

	_, err := f.service.SendMessage(ctx, "user-1", SendMessageRequest{Message: "hello", Model: "gpt-4o-mini"})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)

	convs, err := f.store.ListConversations(ctx, "user-1", ConversationListLimit)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	history, err := f.store.GetHistory(ctx, convs[0].ID, HistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Empty(t, f.events.topics)
}

func TestChatService_ModelCheckedBeforeAnyWrite(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")
	ctx := context.Background()

	f.router.On("Resolve", "nope").Return(ModelConfig{}, ErrUnknownModel).Once()
	_, err := f.service.SendMessage(ctx, "user-1", SendMessageRequest{Message: "hello", Model: "nope"})
	assert.ErrorIs(t, err, ErrUnknownModel)

	f.router.On("Resolve", "gemini-1.5-pro").Return(ModelConfig{}, ErrProviderUnconfigured).Once()
	_, err = f.service.SendMessage(ctx, "user-1", SendMessageRequest{Message: "hello", Model: "gemini-1.5-pro"})
	assert.ErrorIs(t, err, ErrProviderUnconfigured)

	convs, err := f.store.ListConversations(ctx, "user-1", ConversationListLimit)
	require.NoError(t, err)
	assert.Empty(t, convs)
	f.router.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_RejectsBlankMessage(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")

	_, err := f.service.SendMessage(context.Background(), "user-1", SendMessageRequest{Message: "   \n"})
	assert.ErrorIs(t, err, ErrMessageRequired)
	f.router.AssertNotCalled(t, "Resolve", mock.Anything)
}

func TestChatService_ForeignOrMalformedConversationIsNotFound(t *testing.T) {
	f := newChatServiceFixture(t, "owner", "intruder")
	ctx := context.Background()

	convID, err := f.store.CreateConversation(ctx, "owner", "private")
	require.NoError(t, err)
	f.router.On("Resolve", DefaultModelID).Return(ModelConfig{ID: DefaultModelID}, nil)

	_, err = f.service.SendMessage(ctx, "intruder", SendMessageRequest{Message: "let me in", ConversationID: convID.String()})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = f.service.SendMessage(ctx, "intruder", SendMessageRequest{Message: "let me in", ConversationID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	history, err := f.store.GetHistory(ctx, convID, HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, history)
	f.router.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_ExportConversation(t *testing.T) {
	f := newChatServiceFixture(t, "user-1")
	ctx := context.Background()

	convID, err := f.store.CreateConversation(ctx, "user-1", "Export me")
	require.NoError(t, err)
	model := "gpt-4o"
	_, err = f.store.AppendMessage(ctx, AppendMessageParams{ConversationID: convID, Role: models.RoleUser, Content: "Question?"})
	require.NoError(t, err)
	_, err = f.store.AppendMessage(ctx, AppendMessageParams{ConversationID: convID, Role: models.RoleAssistant, Content: "Answer, café.", Model: &model})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.service.ExportConversation(ctx, "user-1", convID.String(), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	err = f.service.ExportConversation(ctx, "someone-else", convID.String(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
