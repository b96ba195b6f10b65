package users

import "time"

type MeResponse struct {
	User     UserDTO     `json:"user"`
	Billing  BillingDTO  `json:"billing"`
	Access   AccessDTO   `json:"access"`
	Progress ProgressDTO `json:"progress"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	AccountType  string           `json:"account_type"`
	Subscription *SubscriptionDTO `json:"subscription"`
	Trial        *TrialDTO        `json:"trial"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"` // active|canceling|canceled
	Plan                 *string    `json:"plan"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
}

type TrialDTO struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft int        `json:"days_left"`
	Expired  bool       `json:"expired"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State   string          `json:"state"` // trial|full|limited|locked
	Modules map[string]bool `json:"modules"`
}

type ProgressDTO struct {
	StudyTimeSeconds int64 `json:"study_time_seconds"`
}
