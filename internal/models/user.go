package models

import (
	"time"
)

type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// User is keyed by the subject issued by the identity provider.
type User struct {
	ID                string    `gorm:"primaryKey;size:191" json:"id"`
	Email             *string   `gorm:"uniqueIndex;size:320" json:"email,omitempty"`
	DisplayName       *string   `gorm:"size:255" json:"displayName,omitempty"`
	Plan              PlanTier  `gorm:"type:varchar(16);not null;default:free" json:"plan"`
	BillingCustomerID *string   `gorm:"uniqueIndex;size:255" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
