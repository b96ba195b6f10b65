package billing

import (
	"time"

	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/domain/users"
)

type Payment struct {
	ID                   uint `gorm:"primaryKey"`
	UserID               uint
	User                 users.User
	LevelID              *uint
	Level                *levels.Level
	StripeSessionID      string `gorm:"uniqueIndex"`
	StripeSubscriptionID *string
	AmountEUR            float64
	Status               string
	CreatedAt            time.Time
}

// WebhookEvent records provider event ids already applied, so redelivered
// events are acknowledged without running the transition again.
type WebhookEvent struct {
	ID          uint   `gorm:"primaryKey"`
	EventID     string `gorm:"not null;uniqueIndex:idx_webhook_events_event_id"`
	Type        string `gorm:"not null"`
	ProcessedAt time.Time
}
