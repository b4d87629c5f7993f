package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	HistoryLimit          = 20
	ConversationListLimit = 50
	TitleMaxLength        = 50
)

var ErrConversationNotFound = errors.New("conversation not found")

type AppendMessageParams struct {
	ConversationID uuid.UUID
	Role           models.MessageRole
	Content        string
	Model          *string
	TokensUsed     int
	Cost           float64
}

// DefaultChatService implements ChatServiceDB on gorm
type DefaultChatService struct {
	db *gorm.DB
}

func NewChatServiceDB(db *gorm.DB) ChatServiceDB {
	return &DefaultChatService{db: db}
}

// ConversationTitle keeps the first TitleMaxLength characters, counted in runes.
func ConversationTitle(seed string) string {
	runes := []rune(seed)
	if len(runes) > TitleMaxLength {
		runes = runes[:TitleMaxLength]
	}
	return string(runes)
}

func (s *DefaultChatService) CreateConversation(ctx context.Context, userID, seedTitle string) (uuid.UUID, error) {
	conv := &models.Conversation{
		UserID: userID,
		Title:  ConversationTitle(seedTitle),
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}

func (s *DefaultChatService) GetConversation(ctx context.Context, conversationID uuid.UUID, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&conv).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to load conversation")
	}
	return &conv, nil
}

func (s *DefaultChatService) ListConversations(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	if limit <= 0 || limit > ConversationListLimit {
		limit = ConversationListLimit
	}
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// AppendMessage inserts the message and bumps the conversation's UpdatedAt atomically.
func (s *DefaultChatService) AppendMessage(ctx context.Context, params AppendMessageParams) (uuid.UUID, error) {
	msg := &models.Message{
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Content:        params.Content,
		Model:          params.Model,
		TokensUsed:     params.TokensUsed,
		Cost:           params.Cost,
	}
	if msg.TokensUsed < 0 {
		msg.TokensUsed = 0
	}
	if msg.Cost < 0 {
		msg.Cost = 0
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Conversation{}).
			Where("id = ?", params.ConversationID).
			Update("updated_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			return uuid.Nil, ErrConversationNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg.ID, nil
}

// GetHistory returns the most recent limit messages, oldest first.
func (s *DefaultChatService) GetHistory(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *DefaultChatService) GetFullConversation(ctx context.Context, conversationID uuid.UUID, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&conv).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to load conversation")
	}
	return &conv, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
