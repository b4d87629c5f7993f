package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const systemPrompt = "You are a helpful assistant. Answer clearly and concisely, and say so when you are not sure."

const ConversationUpdateEvent = "conversation_update"

var ErrMessageRequired = errors.New("message is required")

type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	Model          string `json:"model,omitempty"`
}

type Usage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens"`
	Cost         float64 `json:"cost"`
}

type SendMessageResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Model          string `json:"model"`
	Usage          Usage  `json:"usage"`
}

// ConversationUpdate is published to the owner's topic after every completed exchange.
type ConversationUpdate struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func ConversationTopic(userID string) string {
	return ConversationUpdateEvent + "_" + userID
}

type ChatService struct {
	store  ChatServiceDB
	router ModelRouter
	events EventPublisher
}

func NewChatService(store ChatServiceDB, router ModelRouter, events EventPublisher) *ChatService {
	return &ChatService{
		store:  store,
		router: router,
		events: events,
	}
}

// SendMessage runs one exchange. The user turn is persisted before the provider is called
// and stays persisted when the call fails.
func (s *ChatService) SendMessage(ctx context.Context, userID string, req SendMessageRequest) (*SendMessageResponse, error) {
	logger := zerolog.Ctx(ctx)

	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrMessageRequired
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.router.DefaultModel()
	}
	if _, err := s.router.Resolve(modelID); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	history, err := s.store.GetHistory(ctx, conv.ID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	messages := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ChatMessage{Role: models.RoleUser, Content: req.Message})

	if _, err := s.store.AppendMessage(ctx, AppendMessageParams{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        req.Message,
	}); err != nil {
		return nil, err
	}

	result, err := s.router.Chat(ctx, modelID, messages, systemPrompt)
	if err != nil {
		logger.Error().Err(err).
			Str("conversation_id", conv.ID.String()).
			Str("model", modelID).
			Msg("Chat dispatch failed")
		return nil, err
	}

	model := result.ModelID
	if _, err := s.store.AppendMessage(ctx, AppendMessageParams{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        result.Content,
		Model:          &model,
		TokensUsed:     result.TotalTokens,
		Cost:           result.Cost,
	}); err != nil {
		return nil, err
	}

	logger.Info().
		Str("conversation_id", conv.ID.String()).
		Str("model", model).
		Int("tokens", result.TotalTokens).
		Float64("cost", result.Cost).
		Msg("Chat exchange completed")

	if s.events != nil {
		s.events.Publish(ConversationTopic(userID), ConversationUpdate{
			Type:           ConversationUpdateEvent,
			ConversationID: conv.ID.String(),
			Title:          conv.Title,
			UpdatedAt:      time.Now().UTC(),
		})
	}

	return &SendMessageResponse{
		Message:        result.Content,
		ConversationID: conv.ID.String(),
		Model:          model,
		Usage: Usage{
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
			TotalTokens:  result.TotalTokens,
			Cost:         result.Cost,
		},
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, userID string, req SendMessageRequest) (*models.Conversation, error) {
	if req.ConversationID == "" {
		id, err := s.store.CreateConversation(ctx, userID, req.Message)
		if err != nil {
			return nil, err
		}
		return &models.Conversation{ID: id, UserID: userID, Title: ConversationTitle(req.Message)}, nil
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	return s.store.GetConversation(ctx, id, userID)
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.store.ListConversations(ctx, userID, ConversationListLimit)
}

func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	return s.store.GetFullConversation(ctx, id, userID)
}

func (s *ChatService) AvailableModels() ([]ModelConfig, string) {
	return s.router.AvailableModels(), s.router.DefaultModel()
}

func (s *ChatService) ExportConversation(ctx context.Context, userID, conversationID string, w io.Writer) error {
	conv, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if err := RenderConversationPDF(conv, w); err != nil {
		return fmt.Errorf("failed to render conversation: %w", err)
	}
	return nil
}
