package services

import (
	"context"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/google/uuid"
)

// ChatServiceDB is the conversation store. Every read that takes a userID treats a
// conversation owned by someone else exactly like a missing one.
type ChatServiceDB interface {
	CreateConversation(ctx context.Context, userID, seedTitle string) (uuid.UUID, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID, userID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]models.Conversation, error)
	AppendMessage(ctx context.Context, params AppendMessageParams) (uuid.UUID, error)
	GetHistory(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
	GetFullConversation(ctx context.Context, conversationID uuid.UUID, userID string) (*models.Conversation, error)
}

type ModelRouter interface {
	Resolve(modelID string) (ModelConfig, error)
	Chat(ctx context.Context, modelID string, messages []ChatMessage, systemPrompt string) (*ChatResult, error)
	AvailableModels() []ModelConfig
	DefaultModel() string
}

type EventPublisher interface {
	Publish(topic string, msg interface{})
}

type UserCache interface {
	Get(ctx context.Context, userID string) (*models.User, bool)
	Set(ctx context.Context, user *models.User, ttl time.Duration)
	Delete(ctx context.Context, userID string)
}

// BillingUserStore is the slice of the user service that billing needs.
type BillingUserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SetPlan(ctx context.Context, userID string, plan models.PlanTier) error
	SetBillingCustomer(ctx context.Context, userID, customerID string) error
	GetByBillingCustomer(ctx context.Context, customerID string) (*models.User, error)
}
