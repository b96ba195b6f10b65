package levels

import (
	"time"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/domain/account"
)

// Level is a purchasable tier of exactly one module.
type Level struct {
	ID            uint           `gorm:"primaryKey"`
	Title         string         `gorm:"not null"`
	Module        account.Module `gorm:"type:varchar(20);not null;index"`
	PriceEUR      float64
	StripePriceID string `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_levels_stripe_price_id"`
	Interval      string
	IsActive      bool `gorm:"column:is_active;not null;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Purchase entitles one user to one level while EndedAt is nil. A level sold
// as a subscription keeps the id of the subscription paying for it.
type Purchase struct {
	ID                   uint `gorm:"primaryKey"`
	UserID               uint `gorm:"not null;uniqueIndex:idx_level_purchases_user_level"`
	LevelID              uint `gorm:"not null;uniqueIndex:idx_level_purchases_user_level"`
	Level                Level
	StripeSessionID      *string
	StripeSubscriptionID *string `gorm:"index"`
	EndedAt              *time.Time
	CreatedAt            time.Time
}

func (Purchase) TableName() string {
	return "level_purchases"
}

var ErrNotAvailable = apperr.New(apperr.NotFound, "module not available")
