package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"launchpad_go_backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
)

// Identity is what a verified token says about the caller.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type RegisterParams struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
}

type UserService struct {
	db       *gorm.DB
	cache    UserCache
	cacheTTL time.Duration
}

func NewUserService(db *gorm.DB, cache UserCache, cacheTTL time.Duration) *UserService {
	if cache == nil {
		cache = NoopUserCache{}
	}
	return &UserService{db: db, cache: cache, cacheTTL: cacheTTL}
}

// EnsureUser returns the user for a verified identity, creating the row on first sight.
func (s *UserService) EnsureUser(ctx context.Context, id Identity) (*models.User, error) {
	if id.Subject == "" {
		return nil, errors.New("identity has no subject")
	}
	if user, ok := s.cache.Get(ctx, id.Subject); ok {
		return user, nil
	}

	user := models.User{ID: id.Subject}
	attrs := models.User{Email: optionalString(id.Email), DisplayName: optionalString(id.Name), Plan: models.PlanFree}
	err := s.db.WithContext(ctx).Where(models.User{ID: id.Subject}).Attrs(attrs).FirstOrCreate(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the email belongs to another account; keep the new row without it
		zerolog.Ctx(ctx).Warn().Str("user_id", id.Subject).Msg("Token email already registered, creating user without it")
		attrs.Email = nil
		user = models.User{ID: id.Subject}
		err = s.db.WithContext(ctx).Where(models.User{ID: id.Subject}).Attrs(attrs).FirstOrCreate(&user).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	s.cache.Set(ctx, &user, s.cacheTTL)
	return &user, nil
}

// Register fills in profile fields for an existing or new user.
func (s *UserService) Register(ctx context.Context, userID string, params RegisterParams) (*models.User, error) {
	user := models.User{ID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.User{ID: userID}).Attrs(models.User{Plan: models.PlanFree}).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if params.Email != nil {
			updates["email"] = optionalString(strings.TrimSpace(*params.Email))
		}
		if params.DisplayName != nil {
			updates["display_name"] = optionalString(strings.TrimSpace(*params.DisplayName))
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	s.cache.Delete(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return s.GetUser(ctx, userID)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if user, ok := s.cache.Get(ctx, userID); ok {
		return user, nil
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	s.cache.Set(ctx, &user, s.cacheTTL)
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID, displayName string) (*models.User, error) {
	if err := s.updateField(ctx, userID, "display_name", optionalString(strings.TrimSpace(displayName))); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

func (s *UserService) SetPlan(ctx context.Context, userID string, plan models.PlanTier) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}
	return s.updateField(ctx, userID, "plan", plan)
}

func (s *UserService) SetBillingCustomer(ctx context.Context, userID, customerID string) error {
	return s.updateField(ctx, userID, "billing_customer_id", optionalString(customerID))
}

func (s *UserService) GetByBillingCustomer(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("billing_customer_id = ?", customerID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user by billing customer: %w", err)
	}
	return &user, nil
}

func (s *UserService) updateField(ctx context.Context, userID, column string, value interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	s.cache.Delete(ctx, userID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
