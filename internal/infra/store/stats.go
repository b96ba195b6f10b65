package store

import (
	"context"
	"fmt"
	"time"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/domain/users"
)

type Stats struct {
	TotalUsers     int64
	TotalRevenue   float64
	RecentRevenue  float64
	UsersPerType   map[account.AccountType]int64
	ActiveAccounts int64
}

// Stats aggregates the admin dashboard figures. Revenue counts paid
// payments; recent revenue starts at since.
func (s *Store) Stats(ctx context.Context, since time.Time) (Stats, error) {
	const op = "store.Stats"

	out := Stats{UsersPerType: map[account.AccountType]int64{}}
	db := s.db.WithContext(ctx)

	if err := db.Model(&users.User{}).Count(&out.TotalUsers).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: users: %w", op, err)
	}
	if err := db.Model(&users.User{}).Where("is_active = ?", true).Count(&out.ActiveAccounts).Error; err != nil {
		return Stats{}, fmt.Errorf("%s: active: %w", op, err)
	}

	err := db.Model(&billing.Payment{}).
		Where("status = ?", account.PaymentStatusPaid).
		Select("COALESCE(SUM(amount_eur), 0)").
		Scan(&out.TotalRevenue).Error
	if err != nil {
		return Stats{}, fmt.Errorf("%s: revenue: %w", op, err)
	}

	err = db.Model(&billing.Payment{}).
		Where("status = ? AND created_at >= ?", account.PaymentStatusPaid, since).
		Select("COALESCE(SUM(amount_eur), 0)").
		Scan(&out.RecentRevenue).Error
	if err != nil {
		return Stats{}, fmt.Errorf("%s: recent revenue: %w", op, err)
	}

	type typeCount struct {
		AccountType account.AccountType
		Count       int64
	}
	var counts []typeCount
	err = db.Model(&users.User{}).
		Select("account_type, COUNT(id) AS count").
		Group("account_type").
		Scan(&counts).Error
	if err != nil {
		return Stats{}, fmt.Errorf("%s: per type: %w", op, err)
	}
	for _, c := range counts {
		out.UsersPerType[c.AccountType] += c.Count
	}

	return out, nil
}
