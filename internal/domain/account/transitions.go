package account

import "time"

// The transition functions below are the only place account fields change.
// Each takes the current state plus the trigger and returns the partial update
// to persist; changed=false means the trigger is a no-op for this account.

func NewTrialAccount(p Profile, now time.Time, trialDays int) NewAccount {
	start := now
	end := now.AddDate(0, 0, trialDays)
	return NewAccount{
		Email:        p.Email,
		Name:         p.Name,
		Lastname:     p.Lastname,
		PasswordHash: p.PasswordHash,
		AuthProvider: p.AuthProvider,
		GoogleSub:    p.GoogleSub,
		Role:         "user",
		AccountType:  TypeFreeTrial,
		IsActive:     true,
		TrialStartAt: &start,
		TrialEndDate: &end,
	}
}

// NewPaidAccount builds the account created when a payment arrives for an
// email nobody registered with.
func NewPaidAccount(ev PaymentVerified) (NewAccount, error) {
	if ev.PaymentStatus != PaymentStatusPaid {
		return NewAccount{}, ErrPaymentNotPaid
	}
	return NewAccount{
		Email:                ev.Email,
		AuthProvider:         "checkout",
		Role:                 "user",
		AccountType:          TypePaid,
		IsActive:             true,
		SubscriptionPlan:     nonEmpty(ev.Plan),
		StripeCustomerID:     nonEmpty(ev.CustomerID),
		StripeSubscriptionID: nonEmpty(ev.SubscriptionID),
		SubscriptionEndDate:  ev.PeriodEnd,
	}, nil
}

func OnPaymentVerified(s State, ev PaymentVerified) (Patch, bool, error) {
	if ev.PaymentStatus != PaymentStatusPaid {
		return Patch{}, false, ErrPaymentNotPaid
	}

	var p Patch
	if !s.IsActive {
		p.IsActive = ptr(true)
	}
	// Legacy holders keep their grandfathered type.
	if !s.AccountType.Grandfathered() && s.AccountType != TypePaid {
		t := TypePaid
		p.AccountType = &t
	}
	if ev.CustomerID != "" && !equalStr(s.StripeCustomerID, ev.CustomerID) {
		p.StripeCustomerID = ptr(ev.CustomerID)
	}
	if ev.SubscriptionID != "" && !equalStr(s.StripeSubscriptionID, ev.SubscriptionID) {
		p.StripeSubscriptionID = ptr(ev.SubscriptionID)
		if s.CancelAtPeriodEnd {
			p.CancelAtPeriodEnd = ptr(false)
		}
	}
	if ev.Plan != "" && !equalStr(s.SubscriptionPlan, ev.Plan) {
		p.SubscriptionPlan = ptr(ev.Plan)
	}
	if ev.PeriodEnd != nil && !equalTime(s.SubscriptionEndDate, *ev.PeriodEnd) {
		p.SubscriptionEndDate = ptr(*ev.PeriodEnd)
	}
	return p, !p.IsEmpty(), nil
}

// OnCancellationRequested schedules the end of the subscription. Access is
// kept until EffectiveAt; revoking it is the provider's deletion event.
func OnCancellationRequested(s State, c Cancellation) (Patch, error) {
	if !s.HasSubscription() {
		return Patch{}, ErrNoSubscription
	}
	return Patch{
		SubscriptionEndDate: ptr(c.EffectiveAt),
		CancelAtPeriodEnd:   ptr(true),
	}, nil
}

func OnSubscriptionUpdated(s State, ev SubscriptionUpdated) (Patch, bool) {
	if s.HasSubscription() && *s.StripeSubscriptionID != ev.SubscriptionID {
		return Patch{}, false
	}
	var p Patch
	if !s.HasSubscription() {
		p.StripeSubscriptionID = ptr(ev.SubscriptionID)
	}
	if !ev.PeriodEnd.IsZero() && !equalTime(s.SubscriptionEndDate, ev.PeriodEnd) {
		p.SubscriptionEndDate = ptr(ev.PeriodEnd)
	}
	if s.CancelAtPeriodEnd != ev.CancelAtPeriodEnd {
		p.CancelAtPeriodEnd = ptr(ev.CancelAtPeriodEnd)
	}
	return p, !p.IsEmpty()
}

// Ending is the effect of a provider-side subscription deletion.
type Ending struct {
	Patch Patch
	// ClosePurchases is set when live purchases are paid by the subscription.
	ClosePurchases bool
}

// OnSubscriptionEnded closes the purchases paid by the ended subscription. The
// account itself goes INACTIVE only when no other subscription is still
// paying for a purchase; otherwise it moves on to the remaining one.
func OnSubscriptionEnded(s State, ev SubscriptionEnded) (Ending, bool) {
	if s.AccountType.Grandfathered() {
		return Ending{}, false
	}

	var e Ending
	remaining := ""
	for _, p := range s.Purchases {
		switch p.SubscriptionID {
		case "":
		case ev.SubscriptionID:
			e.ClosePurchases = true
		default:
			remaining = p.SubscriptionID
		}
	}

	if s.HasSubscription() && *s.StripeSubscriptionID != ev.SubscriptionID {
		return e, e.ClosePurchases
	}

	if remaining != "" {
		if s.HasSubscription() {
			e.Patch.StripeSubscriptionID = ptr(remaining)
			if s.CancelAtPeriodEnd {
				e.Patch.CancelAtPeriodEnd = ptr(false)
			}
		}
		return e, e.ClosePurchases || !e.Patch.IsEmpty()
	}

	if s.AccountType == TypeInactive && !s.IsActive {
		return e, e.ClosePurchases
	}
	t := TypeInactive
	e.Patch.AccountType = &t
	e.Patch.IsActive = ptr(false)
	if !ev.EndedAt.IsZero() {
		e.Patch.SubscriptionEndDate = ptr(ev.EndedAt)
	}
	if s.CancelAtPeriodEnd {
		e.Patch.CancelAtPeriodEnd = ptr(false)
	}
	return e, true
}

func OnTrialExpiry(s State, now time.Time) (Patch, bool) {
	if s.AccountType != TypeFreeTrial || s.TrialExpired {
		return Patch{}, false
	}
	if s.TrialEndDate == nil || !s.TrialEndDate.Before(now) {
		return Patch{}, false
	}
	return Patch{TrialExpired: ptr(true)}, true
}

func OnLegacyMigration(s State) (Patch, bool) {
	if s.AccountType != TypePaidFull {
		return Patch{}, false
	}
	t := TypePaidLegacy
	return Patch{AccountType: &t, IsActive: ptr(true)}, true
}

func ptr[T any](v T) *T {
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func equalStr(p *string, v string) bool {
	return p != nil && *p == v
}

func equalTime(p *time.Time, v time.Time) bool {
	return p != nil && p.Equal(v)
}
