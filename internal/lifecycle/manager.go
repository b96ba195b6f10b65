// Package lifecycle applies account transitions in response to signups,
// billing events and the scheduled trial sweep.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tajwid-academy/internal/apperr"
	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/infra/metrics"
	"tajwid-academy/internal/lib/sl"
)

const (
	TriggerSignup               = "signup"
	TriggerPaymentVerified      = "payment_verified"
	TriggerCancellation         = "cancellation_requested"
	TriggerSubscriptionUpdated  = "subscription_updated"
	TriggerSubscriptionEnded    = "subscription_ended"
	TriggerTrialExpirySweep     = "trial_expiry_sweep"
	TriggerLegacyMigration      = "legacy_migration"
	resultApplied, resultNoop   = "applied", "noop"
	resultCreated, resultFailed = "created", "failed"
)

type Store interface {
	Get(ctx context.Context, userID uint) (account.State, error)
	Update(ctx context.Context, userID uint, p account.Patch) (account.State, error)
	Create(ctx context.Context, a account.NewAccount) (account.State, error)
	FindByEmail(ctx context.Context, email string) (account.State, error)
	FindByStripeCustomer(ctx context.Context, customerID string) (account.State, error)
	FindBySubscription(ctx context.Context, subscriptionID string) (account.State, error)
	ListTrialsEndedBefore(ctx context.Context, t time.Time) ([]account.State, error)
	ListByAccountType(ctx context.Context, t account.AccountType) ([]account.State, error)
	RecordPurchase(ctx context.Context, userID, levelID uint, sessionID, subscriptionID string) error
	EndPurchases(ctx context.Context, userID uint, subscriptionID string, at time.Time) error
	RecordPayment(ctx context.Context, p billing.Payment) error
}

// Canceller is the billing-provider side of a cancellation.
type Canceller interface {
	CancelSubscription(ctx context.Context, subscriptionID string) (account.Cancellation, error)
}

type Manager struct {
	store     Store
	billing   Canceller
	log       *slog.Logger
	now       func() time.Time
	trialDays int
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(store Store, billing Canceller, log *slog.Logger, trialDays int, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		billing:   billing,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		trialDays: trialDays,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Signup creates a FREE_TRIAL account.
func (m *Manager) Signup(ctx context.Context, p account.Profile) (account.State, error) {
	const op = "lifecycle.Signup"
	log := m.log.With(slog.String("op", op), slog.String("trigger", TriggerSignup))

	_, err := m.store.FindByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return account.State{}, account.ErrAlreadyExists
	case !errors.Is(err, account.ErrNotFound):
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}

	st, err := m.store.Create(ctx, account.NewTrialAccount(p, m.now(), m.trialDays))
	if err != nil {
		m.count(TriggerSignup, resultFailed)
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}

	m.count(TriggerSignup, resultCreated)
	log.Info("trial account created", slog.Uint64("user_id", uint64(st.UserID)), slog.Time("trial_end", *st.TrialEndDate))
	return st, nil
}

// PaymentVerified activates (or creates) the paying account. Replays of the
// same payment leave the account untouched.
func (m *Manager) PaymentVerified(ctx context.Context, ev account.PaymentVerified) (account.State, error) {
	const op = "lifecycle.PaymentVerified"
	log := m.log.With(slog.String("op", op), slog.String("trigger", TriggerPaymentVerified), slog.String("session_id", ev.SessionID))

	if ev.PaymentStatus != account.PaymentStatusPaid {
		log.Warn("payment not completed", slog.String("payment_status", ev.PaymentStatus))
		return account.State{}, account.ErrPaymentNotPaid
	}

	result := resultNoop
	st, err := m.resolve(ctx, ev.UserID, ev.CustomerID, ev.Email)
	switch {
	case errors.Is(err, account.ErrNotFound):
		st, err = m.createPaid(ctx, ev)
		if err != nil {
			m.count(TriggerPaymentVerified, resultFailed)
			return account.State{}, fmt.Errorf("%s: %w", op, err)
		}
		result = resultCreated
	case err != nil:
		m.count(TriggerPaymentVerified, resultFailed)
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	default:
		patch, changed, err := account.OnPaymentVerified(st, ev)
		if err != nil {
			return account.State{}, err
		}
		if changed {
			if st, err = m.store.Update(ctx, st.UserID, patch); err != nil {
				m.count(TriggerPaymentVerified, resultFailed)
				return account.State{}, fmt.Errorf("%s: %w", op, err)
			}
			result = resultApplied
		}
	}

	if ev.LevelID != 0 {
		if err := m.store.RecordPurchase(ctx, st.UserID, ev.LevelID, ev.SessionID, ev.SubscriptionID); err != nil {
			m.count(TriggerPaymentVerified, resultFailed)
			return account.State{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if ev.SessionID != "" {
		p := billing.Payment{
			UserID:          st.UserID,
			StripeSessionID: ev.SessionID,
			AmountEUR:       ev.AmountEUR,
			Status:          account.PaymentStatusPaid,
		}
		if ev.LevelID != 0 {
			id := ev.LevelID
			p.LevelID = &id
		}
		if ev.SubscriptionID != "" {
			sub := ev.SubscriptionID
			p.StripeSubscriptionID = &sub
		}
		if err := m.store.RecordPayment(ctx, p); err != nil {
			log.Error("failed to record payment", sl.Err(err), slog.Uint64("user_id", uint64(st.UserID)))
		}
	}

	m.count(TriggerPaymentVerified, result)
	log.Info("payment verified", slog.Uint64("user_id", uint64(st.UserID)), slog.String("result", result))

	return m.store.Get(ctx, st.UserID)
}

func (m *Manager) createPaid(ctx context.Context, ev account.PaymentVerified) (account.State, error) {
	if ev.Email == "" {
		return account.State{}, apperr.New(apperr.Validation, "payment has no customer email")
	}
	na, err := account.NewPaidAccount(ev)
	if err != nil {
		return account.State{}, err
	}
	st, err := m.store.Create(ctx, na)
	if errors.Is(err, account.ErrAlreadyExists) {
		// A concurrent delivery created it first; fall back to the normal path.
		if st, err = m.store.FindByEmail(ctx, ev.Email); err != nil {
			return account.State{}, err
		}
		patch, changed, err := account.OnPaymentVerified(st, ev)
		if err != nil || !changed {
			return st, err
		}
		return m.store.Update(ctx, st.UserID, patch)
	}
	return st, err
}

// RequestCancellation asks the provider to stop renewing and records the end
// date. The account stays active until then.
func (m *Manager) RequestCancellation(ctx context.Context, userID uint) (account.State, error) {
	const op = "lifecycle.RequestCancellation"
	log := m.log.With(slog.String("op", op), slog.String("trigger", TriggerCancellation), slog.Uint64("user_id", uint64(userID)))

	st, err := m.store.Get(ctx, userID)
	if err != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	if !st.HasSubscription() {
		return account.State{}, account.ErrNoSubscription
	}
	if st.CancelAtPeriodEnd {
		m.count(TriggerCancellation, resultNoop)
		return st, nil
	}

	c, err := m.billing.CancelSubscription(ctx, *st.StripeSubscriptionID)
	if err != nil {
		m.count(TriggerCancellation, resultFailed)
		log.Error("billing provider rejected cancellation", sl.Err(err))
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}

	patch, err := account.OnCancellationRequested(st, c)
	if err != nil {
		return account.State{}, err
	}
	if st, err = m.store.Update(ctx, userID, patch); err != nil {
		m.count(TriggerCancellation, resultFailed)
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}

	m.count(TriggerCancellation, resultApplied)
	log.Info("cancellation scheduled", slog.Time("effective_at", c.EffectiveAt))
	return st, nil
}

func (m *Manager) SubscriptionUpdated(ctx context.Context, ev account.SubscriptionUpdated) (account.State, error) {
	const op = "lifecycle.SubscriptionUpdated"

	st, err := m.resolveSubscription(ctx, ev.UserID, ev.SubscriptionID)
	if err != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	patch, changed := account.OnSubscriptionUpdated(st, ev)
	return m.apply(ctx, op, TriggerSubscriptionUpdated, st, patch, changed)
}

func (m *Manager) SubscriptionEnded(ctx context.Context, ev account.SubscriptionEnded) (account.State, error) {
	const op = "lifecycle.SubscriptionEnded"

	st, err := m.resolveSubscription(ctx, ev.UserID, ev.SubscriptionID)
	if err != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	end, changed := account.OnSubscriptionEnded(st, ev)
	if end.ClosePurchases {
		at := ev.EndedAt
		if at.IsZero() {
			at = m.now()
		}
		if err := m.store.EndPurchases(ctx, st.UserID, ev.SubscriptionID, at); err != nil {
			m.count(TriggerSubscriptionEnded, resultFailed)
			return account.State{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return m.apply(ctx, op, TriggerSubscriptionEnded, st, end.Patch, changed)
}

// SweepExpiredTrials flags every FREE_TRIAL account whose trial ended. Each
// account is one partial update; a failure is logged and the sweep moves on.
// It returns how many accounts were transitioned.
func (m *Manager) SweepExpiredTrials(ctx context.Context) (int, error) {
	const op = "lifecycle.SweepExpiredTrials"
	log := m.log.With(slog.String("op", op), slog.String("trigger", TriggerTrialExpirySweep))

	now := m.now()
	candidates, err := m.store.ListTrialsEndedBefore(ctx, now)
	if err != nil {
		log.Error("failed to list expired trials", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	expired, failed := 0, 0
	for _, c := range candidates {
		patch, ok := account.OnTrialExpiry(c, now)
		if !ok {
			continue
		}
		if _, err := m.store.Update(ctx, c.UserID, patch); err != nil {
			failed++
			m.count(TriggerTrialExpirySweep, resultFailed)
			log.Error("failed to expire trial", sl.Err(err), slog.Uint64("user_id", uint64(c.UserID)))
			continue
		}
		expired++
		m.count(TriggerTrialExpirySweep, resultApplied)
	}

	log.Info("trial sweep finished", slog.Int("expired", expired), slog.Int("failed", failed))
	return expired, nil
}

// MigrateLegacy rewrites every PAID_FULL account to PAID_LEGACY.
func (m *Manager) MigrateLegacy(ctx context.Context) (int, error) {
	const op = "lifecycle.MigrateLegacy"
	log := m.log.With(slog.String("op", op), slog.String("trigger", TriggerLegacyMigration))

	rows, err := m.store.ListByAccountType(ctx, account.TypePaidFull)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	migrated := 0
	for _, st := range rows {
		patch, ok := account.OnLegacyMigration(st)
		if !ok {
			continue
		}
		if _, err := m.store.Update(ctx, st.UserID, patch); err != nil {
			m.count(TriggerLegacyMigration, resultFailed)
			log.Error("failed to migrate account", sl.Err(err), slog.Uint64("user_id", uint64(st.UserID)))
			continue
		}
		migrated++
		m.count(TriggerLegacyMigration, resultApplied)
	}

	log.Info("legacy migration finished", slog.Int("migrated", migrated), slog.Int("candidates", len(rows)))
	return migrated, nil
}

func (m *Manager) apply(ctx context.Context, op, trigger string, st account.State, patch account.Patch, changed bool) (account.State, error) {
	if !changed {
		m.count(trigger, resultNoop)
		return st, nil
	}
	next, err := m.store.Update(ctx, st.UserID, patch)
	if err != nil {
		m.count(trigger, resultFailed)
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	m.count(trigger, resultApplied)
	m.log.Info("account transitioned",
		slog.String("op", op),
		slog.String("trigger", trigger),
		slog.Uint64("user_id", uint64(st.UserID)),
		slog.String("account_type", string(next.AccountType)),
		slog.Bool("is_active", next.IsActive),
	)
	return next, nil
}

// resolve finds the account a payment belongs to: explicit user id first,
// then the provider customer, then the email.
func (m *Manager) resolve(ctx context.Context, userID uint, customerID, email string) (account.State, error) {
	if userID != 0 {
		st, err := m.store.Get(ctx, userID)
		if !errors.Is(err, account.ErrNotFound) {
			return st, err
		}
	}
	if customerID != "" {
		st, err := m.store.FindByStripeCustomer(ctx, customerID)
		if !errors.Is(err, account.ErrNotFound) {
			return st, err
		}
	}
	if email != "" {
		return m.store.FindByEmail(ctx, email)
	}
	return account.State{}, account.ErrNotFound
}

func (m *Manager) resolveSubscription(ctx context.Context, userID uint, subscriptionID string) (account.State, error) {
	if userID != 0 {
		st, err := m.store.Get(ctx, userID)
		if !errors.Is(err, account.ErrNotFound) {
			return st, err
		}
	}
	if subscriptionID != "" {
		return m.store.FindBySubscription(ctx, subscriptionID)
	}
	return account.State{}, account.ErrNotFound
}

func (m *Manager) count(trigger, result string) {
	metrics.Transitions.WithLabelValues(trigger, result).Inc()
}
