package users

import (
	"time"

	"tajwid-academy/internal/domain/account"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `json:"-"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string  `gorm:"type:varchar(20);not null;default:'user'"`

	AccountType  account.AccountType `gorm:"column:account_type;type:varchar(20);not null;index"`
	IsActive     bool                `gorm:"column:is_active;not null"`
	TrialStartAt *time.Time          `gorm:"column:trial_start_at"`
	TrialEndDate *time.Time          `gorm:"column:trial_end_date;index"`
	TrialExpired bool                `gorm:"column:trial_expired;not null"`

	SubscriptionPlan     *string    `gorm:"column:subscription_plan"`
	StripeCustomerID     *string    `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`
	StripeSubscriptionID *string    `gorm:"column:stripe_subscription_id;uniqueIndex:idx_users_stripe_subscription_id"`
	SubscriptionEndDate  *time.Time `gorm:"column:subscription_end_date"`
	CancelAtPeriodEnd    bool       `gorm:"column:cancel_at_period_end;not null"`

	StudyTimeSeconds int64 `gorm:"column:study_time_seconds;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// State projects the row onto the access-relevant fields. Purchases are
// loaded separately.
func (u User) State() account.State {
	return account.State{
		UserID:               u.ID,
		Email:                u.Email,
		AccountType:          u.AccountType,
		IsActive:             u.IsActive,
		TrialEndDate:         u.TrialEndDate,
		TrialExpired:         u.TrialExpired,
		SubscriptionPlan:     u.SubscriptionPlan,
		StripeCustomerID:     u.StripeCustomerID,
		StripeSubscriptionID: u.StripeSubscriptionID,
		SubscriptionEndDate:  u.SubscriptionEndDate,
		CancelAtPeriodEnd:    u.CancelAtPeriodEnd,
		StudyTimeSeconds:     u.StudyTimeSeconds,
	}
}
