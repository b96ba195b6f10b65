package store

import (
	"context"
	"fmt"
	"time"

	"tajwid-academy/internal/domain/billing"

	"gorm.io/gorm/clause"
)

// RecordPayment stores a payment once per checkout session.
func (s *Store) RecordPayment(ctx context.Context, p billing.Payment) error {
	const op = "store.RecordPayment"

	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_session_id"}}, DoNothing: true}).
		Create(&p).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, userID uint) ([]billing.Payment, error) {
	const op = "store.ListPayments"

	var out []billing.Payment
	err := s.db.WithContext(ctx).
		Preload("Level").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Store) ListAllPayments(ctx context.Context) ([]billing.Payment, error) {
	const op = "store.ListAllPayments"

	var out []billing.Payment
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Level").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// EventProcessed reports whether a provider event id was already applied.
func (s *Store) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	const op = "store.EventProcessed"

	var n int64
	if err := s.db.WithContext(ctx).Model(&billing.WebhookEvent{}).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	const op = "store.MarkEventProcessed"

	ev := billing.WebhookEvent{EventID: eventID, Type: eventType, ProcessedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&ev).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
