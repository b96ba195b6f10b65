package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/levels"

	"gorm.io/gorm"
)

// ActiveLevelForModule returns the level currently offered for m.
func (s *Store) ActiveLevelForModule(ctx context.Context, m account.Module) (levels.Level, error) {
	const op = "store.ActiveLevelForModule"

	var l levels.Level
	err := s.db.WithContext(ctx).
		Where("module = ? AND is_active = ?", string(m), true).
		Order("id ASC").
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return levels.Level{}, fmt.Errorf("%s: %w", op, levels.ErrNotAvailable)
		}
		return levels.Level{}, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (s *Store) ListActiveLevels(ctx context.Context) ([]levels.Level, error) {
	const op = "store.ListActiveLevels"

	var out []levels.Level
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("module ASC, price_eur ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ActiveLevelByPriceID is the checkout allow-list: only offered levels can be bought.
func (s *Store) ActiveLevelByPriceID(ctx context.Context, priceID string) (levels.Level, error) {
	const op = "store.ActiveLevelByPriceID"

	var l levels.Level
	err := s.db.WithContext(ctx).Where("stripe_price_id = ? AND is_active = ?", priceID, true).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return levels.Level{}, fmt.Errorf("%s: %w", op, levels.ErrNotAvailable)
		}
		return levels.Level{}, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// UpsertLevel creates or refreshes the level keyed by its Stripe price id.
func (s *Store) UpsertLevel(ctx context.Context, l levels.Level) (created bool, err error) {
	const op = "store.UpsertLevel"

	var existing levels.Level
	err = s.db.WithContext(ctx).Where("stripe_price_id = ?", l.StripePriceID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
			return false, fmt.Errorf("%s: create: %w", op, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	err = s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"title":     l.Title,
		"module":    string(l.Module),
		"price_eur": l.PriceEUR,
		"interval":  l.Interval,
		"is_active": l.IsActive,
	}).Error
	if err != nil {
		return false, fmt.Errorf("%s: update: %w", op, err)
	}
	return false, nil
}

// RecordPurchase links the user to the level. Replaying the same checkout is a
// no-op; a new checkout for a level bought before reopens the purchase under
// the new subscription.
func (s *Store) RecordPurchase(ctx context.Context, userID, levelID uint, sessionID, subscriptionID string) error {
	const op = "store.RecordPurchase"

	p := levels.Purchase{UserID: userID, LevelID: levelID}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND level_id = ?", userID, levelID).
		Attrs(levels.Purchase{StripeSessionID: optional(sessionID), StripeSubscriptionID: optional(subscriptionID)}).
		FirstOrCreate(&p).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sessionID == "" || (p.StripeSessionID != nil && *p.StripeSessionID == sessionID) {
		return nil
	}

	err = s.db.WithContext(ctx).Model(&p).Updates(map[string]interface{}{
		"stripe_session_id":      optional(sessionID),
		"stripe_subscription_id": optional(subscriptionID),
		"ended_at":               nil,
	}).Error
	if err != nil {
		return fmt.Errorf("%s: reopen: %w", op, err)
	}
	return nil
}

// EndPurchases closes every live purchase of the user paid by subscriptionID.
func (s *Store) EndPurchases(ctx context.Context, userID uint, subscriptionID string, at time.Time) error {
	const op = "store.EndPurchases"

	err := s.db.WithContext(ctx).
		Model(&levels.Purchase{}).
		Where("user_id = ? AND stripe_subscription_id = ? AND ended_at IS NULL", userID, subscriptionID).
		Update("ended_at", at).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
