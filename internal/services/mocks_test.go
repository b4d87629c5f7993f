package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"launchpad_go_backend/internal/database"
	"launchpad_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockProviderAdapter struct {
	mock.Mock
	kind ProviderKind
}

func (m *MockProviderAdapter) Kind() ProviderKind {
	return m.kind
}

func (m *MockProviderAdapter) Send(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProviderResponse), args.Error(1)
}

type MockModelRouter struct {
	mock.Mock
}

func (m *MockModelRouter) Resolve(modelID string) (ModelConfig, error) {
	args := m.Called(modelID)
	return args.Get(0).(ModelConfig), args.Error(1)
}

func (m *MockModelRouter) Chat(ctx context.Context, modelID string, messages []ChatMessage, systemPrompt string) (*ChatResult, error) {
	args := m.Called(ctx, modelID, messages, systemPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChatResult), args.Error(1)
}

func (m *MockModelRouter) AvailableModels() []ModelConfig {
	args := m.Called()
	return args.Get(0).([]ModelConfig)
}

func (m *MockModelRouter) DefaultModel() string {
	args := m.Called()
	return args.String(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []interface{}
}

func (p *recordingPublisher) Publish(topic string, msg interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.msgs = append(p.msgs, msg)
}

type mapUserCache struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMapUserCache() *mapUserCache {
	return &mapUserCache{users: map[string]models.User{}}
}

func (c *mapUserCache) Get(_ context.Context, userID string) (*models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *mapUserCache) Set(_ context.Context, user *models.User, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.ID] = *user
}

func (c *mapUserCache) Delete(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	user := &models.User{ID: id}
	require.NoError(t, db.Create(user).Error)
	return user
}
