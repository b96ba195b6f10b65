package account

import "time"

// State is the access-relevant view of a user account.
type State struct {
	UserID      uint
	Email       string
	AccountType AccountType
	IsActive    bool

	TrialEndDate *time.Time
	TrialExpired bool

	SubscriptionPlan     *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEndDate  *time.Time
	CancelAtPeriodEnd    bool

	StudyTimeSeconds int64

	Purchases []Purchase
}

// Purchase is a live Level Purchase joined with the level it unlocks.
// SubscriptionID is empty for one-off payments.
type Purchase struct {
	LevelID        uint
	Module         Module
	LevelActive    bool
	SubscriptionID string
}

// HasSubscription reports whether a provider subscription is attached.
func (s State) HasSubscription() bool {
	return s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != ""
}

// Patch is a partial account update. Only non-nil fields are written, so two
// triggers touching disjoint fields never overwrite each other.
type Patch struct {
	AccountType          *AccountType
	IsActive             *bool
	TrialEndDate         *time.Time
	TrialExpired         *bool
	SubscriptionPlan     *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEndDate  *time.Time
	CancelAtPeriodEnd    *bool
}

func (p Patch) IsEmpty() bool {
	return p.AccountType == nil &&
		p.IsActive == nil &&
		p.TrialEndDate == nil &&
		p.TrialExpired == nil &&
		p.SubscriptionPlan == nil &&
		p.StripeCustomerID == nil &&
		p.StripeSubscriptionID == nil &&
		p.SubscriptionEndDate == nil &&
		p.CancelAtPeriodEnd == nil
}

// Apply returns s with p merged in.
func (p Patch) Apply(s State) State {
	if p.AccountType != nil {
		s.AccountType = *p.AccountType
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.TrialEndDate != nil {
		t := *p.TrialEndDate
		s.TrialEndDate = &t
	}
	if p.TrialExpired != nil {
		s.TrialExpired = *p.TrialExpired
	}
	if p.SubscriptionPlan != nil {
		v := *p.SubscriptionPlan
		s.SubscriptionPlan = &v
	}
	if p.StripeCustomerID != nil {
		v := *p.StripeCustomerID
		s.StripeCustomerID = &v
	}
	if p.StripeSubscriptionID != nil {
		v := *p.StripeSubscriptionID
		s.StripeSubscriptionID = &v
	}
	if p.SubscriptionEndDate != nil {
		t := *p.SubscriptionEndDate
		s.SubscriptionEndDate = &t
	}
	if p.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *p.CancelAtPeriodEnd
	}
	return s
}

// NewAccount is everything needed to insert an account row.
type NewAccount struct {
	Email        string
	Name         string
	Lastname     string
	PasswordHash *string
	AuthProvider string
	GoogleSub    *string
	Role         string

	AccountType  AccountType
	IsActive     bool
	TrialStartAt *time.Time
	TrialEndDate *time.Time

	SubscriptionPlan     *string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEndDate  *time.Time
}

// Profile is the signup data supplied by the registration flows.
type Profile struct {
	Email        string
	Name         string
	Lastname     string
	PasswordHash *string
	AuthProvider string
	GoogleSub    *string
}
