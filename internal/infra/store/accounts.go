// Package store is the gorm-backed persistence for accounts, levels and billing records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/users"

	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the account state with its level purchases.
func (s *Store) Get(ctx context.Context, userID uint) (account.State, error) {
	const op = "store.Get"

	u, err := s.findUser(ctx, "id = ?", userID)
	if err != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.withPurchases(ctx, u)
}

// Update writes only the columns set in p. It never saves the whole row, so
// concurrent triggers owning different fields do not clobber each other.
func (s *Store) Update(ctx context.Context, userID uint, p account.Patch) (account.State, error) {
	const op = "store.Update"

	cols := patchColumns(p)
	if len(cols) == 0 {
		return s.Get(ctx, userID)
	}

	res := s.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Updates(cols)
	if res.Error != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return account.State{}, fmt.Errorf("%s: %w", op, account.ErrNotFound)
	}
	return s.Get(ctx, userID)
}

func (s *Store) Create(ctx context.Context, a account.NewAccount) (account.State, error) {
	const op = "store.Create"

	u := users.User{
		Name:                 a.Name,
		Lastname:             a.Lastname,
		Email:                normalizeEmail(a.Email),
		Password:             a.PasswordHash,
		AuthProvider:         a.AuthProvider,
		GoogleSub:            a.GoogleSub,
		Role:                 a.Role,
		AccountType:          a.AccountType,
		IsActive:             a.IsActive,
		TrialStartAt:         a.TrialStartAt,
		TrialEndDate:         a.TrialEndDate,
		SubscriptionPlan:     a.SubscriptionPlan,
		StripeCustomerID:     a.StripeCustomerID,
		StripeSubscriptionID: a.StripeSubscriptionID,
		SubscriptionEndDate:  a.SubscriptionEndDate,
	}

	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return account.State{}, fmt.Errorf("%s: %w", op, account.ErrAlreadyExists)
		}
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	return u.State(), nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (account.State, error) {
	return s.findState(ctx, "store.FindByEmail", "email = ?", normalizeEmail(email))
}

func (s *Store) FindByStripeCustomer(ctx context.Context, customerID string) (account.State, error) {
	return s.findState(ctx, "store.FindByStripeCustomer", "stripe_customer_id = ?", customerID)
}

// FindBySubscription matches the account's current subscription or any
// purchase paid by it.
func (s *Store) FindBySubscription(ctx context.Context, subscriptionID string) (account.State, error) {
	paidBy := s.db.Table("level_purchases").Select("user_id").Where("stripe_subscription_id = ?", subscriptionID)
	return s.findState(ctx, "store.FindBySubscription", "stripe_subscription_id = ? OR id IN (?)", subscriptionID, paidBy)
}

// ListTrialsEndedBefore returns unexpired FREE_TRIAL accounts whose trial
// ended before t. Purchases are not loaded.
func (s *Store) ListTrialsEndedBefore(ctx context.Context, t time.Time) ([]account.State, error) {
	const op = "store.ListTrialsEndedBefore"

	var rows []users.User
	err := s.db.WithContext(ctx).
		Where("account_type = ? AND trial_expired = ? AND trial_end_date < ?", string(account.TypeFreeTrial), false, t).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return states(rows), nil
}

// ListByAccountType returns every account of the given type. Purchases are not loaded.
func (s *Store) ListByAccountType(ctx context.Context, t account.AccountType) ([]account.State, error) {
	const op = "store.ListByAccountType"

	var rows []users.User
	if err := s.db.WithContext(ctx).Where("account_type = ?", string(t)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return states(rows), nil
}

// AddStudyTime increments the counter in SQL and returns the new total.
func (s *Store) AddStudyTime(ctx context.Context, userID uint, seconds int64) (int64, error) {
	const op = "store.AddStudyTime"

	res := s.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("study_time_seconds", gorm.Expr("study_time_seconds + ?", seconds))
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%s: %w", op, account.ErrNotFound)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", userID).Pluck("study_time_seconds", &total).Error; err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

func (s *Store) findState(ctx context.Context, op string, query string, args ...interface{}) (account.State, error) {
	u, err := s.findUser(ctx, query, args...)
	if err != nil {
		return account.State{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.withPurchases(ctx, u)
}

func (s *Store) findUser(ctx context.Context, query string, args ...interface{}) (users.User, error) {
	var u users.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return users.User{}, account.ErrNotFound
		}
		return users.User{}, err
	}
	return u, nil
}

type purchaseRow struct {
	LevelID              uint
	Module               string
	IsActive             bool
	StripeSubscriptionID *string
}

func (s *Store) withPurchases(ctx context.Context, u users.User) (account.State, error) {
	var rows []purchaseRow
	err := s.db.WithContext(ctx).
		Table("level_purchases").
		Select("level_purchases.level_id, levels.module, levels.is_active, level_purchases.stripe_subscription_id").
		Joins("JOIN levels ON levels.id = level_purchases.level_id").
		Where("level_purchases.user_id = ? AND level_purchases.ended_at IS NULL", u.ID).
		Order("level_purchases.id").
		Scan(&rows).Error
	if err != nil {
		return account.State{}, fmt.Errorf("store.withPurchases: %w", err)
	}

	st := u.State()
	for _, r := range rows {
		p := account.Purchase{
			LevelID:     r.LevelID,
			Module:      account.Module(r.Module),
			LevelActive: r.IsActive,
		}
		if r.StripeSubscriptionID != nil {
			p.SubscriptionID = *r.StripeSubscriptionID
		}
		st.Purchases = append(st.Purchases, p)
	}
	return st, nil
}

func patchColumns(p account.Patch) map[string]interface{} {
	cols := map[string]interface{}{}
	if p.AccountType != nil {
		cols["account_type"] = string(*p.AccountType)
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.TrialEndDate != nil {
		cols["trial_end_date"] = *p.TrialEndDate
	}
	if p.TrialExpired != nil {
		cols["trial_expired"] = *p.TrialExpired
	}
	if p.SubscriptionPlan != nil {
		cols["subscription_plan"] = *p.SubscriptionPlan
	}
	if p.StripeCustomerID != nil {
		cols["stripe_customer_id"] = *p.StripeCustomerID
	}
	if p.StripeSubscriptionID != nil {
		cols["stripe_subscription_id"] = *p.StripeSubscriptionID
	}
	if p.SubscriptionEndDate != nil {
		cols["subscription_end_date"] = *p.SubscriptionEndDate
	}
	if p.CancelAtPeriodEnd != nil {
		cols["cancel_at_period_end"] = *p.CancelAtPeriodEnd
	}
	return cols
}

func states(rows []users.User) []account.State {
	out := make([]account.State, 0, len(rows))
	for _, u := range rows {
		out = append(out, u.State())
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
