package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const userCachePrefix = "user:"

// RedisUserCache is a read-through cache in front of the users table.
// Failures are logged and treated as misses.
type RedisUserCache struct {
	client *redis.Client
}

func NewRedisUserCache(ctx context.Context, redisURL string) (*RedisUserCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisUserCache{client: client}, nil
}

func (c *RedisUserCache) Close() error {
	return c.client.Close()
}

// cachedUser keeps the fields models.User hides from JSON responses.
type cachedUser struct {
	ID                string          `json:"id"`
	Email             *string         `json:"email"`
	DisplayName       *string         `json:"displayName"`
	Plan              models.PlanTier `json:"plan"`
	BillingCustomerID *string         `json:"billingCustomerId"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (c *RedisUserCache) Get(ctx context.Context, userID string) (*models.User, bool) {
	raw, err := c.client.Get(ctx, userCachePrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("User cache read failed")
		}
		return nil, false
	}
	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return nil, false
	}
	return &models.User{
		ID:                cu.ID,
		Email:             cu.Email,
		DisplayName:       cu.DisplayName,
		Plan:              cu.Plan,
		BillingCustomerID: cu.BillingCustomerID,
		CreatedAt:         cu.CreatedAt,
		UpdatedAt:         cu.UpdatedAt,
	}, true
}

func (c *RedisUserCache) Set(ctx context.Context, user *models.User, ttl time.Duration) {
	raw, err := json.Marshal(cachedUser{
		ID:                user.ID,
		Email:             user.Email,
		DisplayName:       user.DisplayName,
		Plan:              user.Plan,
		BillingCustomerID: user.BillingCustomerID,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userCachePrefix+user.ID, raw, ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("User cache write failed")
	}
}

func (c *RedisUserCache) Delete(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, userCachePrefix+userID).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("User cache invalidation failed")
	}
}

type NoopUserCache struct{}

func (NoopUserCache) Get(context.Context, string) (*models.User, bool) { return nil, false }
func (NoopUserCache) Set(context.Context, *models.User, time.Duration) {}
func (NoopUserCache) Delete(context.Context, string)                   {}
