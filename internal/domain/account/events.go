package account

import "time"

const PaymentStatusPaid = "paid"

// PaymentVerified is a confirmed checkout, from the webhook or the
// synchronous verification call.
type PaymentVerified struct {
	EventID        string
	SessionID      string
	PaymentStatus  string
	UserID         uint
	Email          string
	CustomerID     string
	SubscriptionID string
	Plan           string
	LevelID        uint
	AmountEUR      float64
	PeriodEnd      *time.Time
}

// Cancellation is what the billing provider returns for a cancel-at-period-end request.
type Cancellation struct {
	SubscriptionID string
	EffectiveAt    time.Time
}

// SubscriptionUpdated mirrors provider-side changes to an existing subscription.
type SubscriptionUpdated struct {
	EventID           string
	SubscriptionID    string
	UserID            uint
	Status            string
	CancelAtPeriodEnd bool
	PeriodEnd         time.Time
}

// SubscriptionEnded is emitted when the provider deletes the subscription.
type SubscriptionEnded struct {
	EventID        string
	SubscriptionID string
	UserID         uint
	EndedAt        time.Time
}
