package store

import (
	"context"
	"errors"
	"fmt"

	"tajwid-academy/internal/domain/account"
	"tajwid-academy/internal/domain/professors"
	"tajwid-academy/internal/domain/users"

	"gorm.io/gorm"
)

// UserByEmail returns the full row, including the password hash, for sign-in flows.
func (s *Store) UserByEmail(ctx context.Context, email string) (users.User, error) {
	u, err := s.findUser(ctx, "email = ?", normalizeEmail(email))
	if err != nil {
		return users.User{}, fmt.Errorf("store.UserByEmail: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (users.User, error) {
	u, err := s.findUser(ctx, "id = ?", id)
	if err != nil {
		return users.User{}, fmt.Errorf("store.UserByID: %w", err)
	}
	return u, nil
}

func (s *Store) UserByGoogleSub(ctx context.Context, sub string) (users.User, error) {
	u, err := s.findUser(ctx, "google_sub = ?", sub)
	if err != nil {
		return users.User{}, fmt.Errorf("store.UserByGoogleSub: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]users.User, error) {
	var out []users.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store.ListUsers: %w", err)
	}
	return out, nil
}

func (s *Store) SetPassword(ctx context.Context, userID uint, hash string) error {
	return s.setUserColumns(ctx, "store.SetPassword", userID, map[string]interface{}{"password": hash})
}

func (s *Store) LinkGoogle(ctx context.Context, userID uint, sub string) error {
	return s.setUserColumns(ctx, "store.LinkGoogle", userID, map[string]interface{}{"google_sub": sub, "auth_provider": "google"})
}

func (s *Store) setUserColumns(ctx context.Context, op string, userID uint, cols map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", userID).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, account.ErrNotFound)
	}
	return nil
}

var ErrProfessorNotFound = errors.New("professor not found")

func (s *Store) ProfessorByEmail(ctx context.Context, email string) (professors.Professor, error) {
	return s.findProfessor(ctx, "store.ProfessorByEmail", "email = ?", normalizeEmail(email))
}

func (s *Store) ProfessorByID(ctx context.Context, id uint) (professors.Professor, error) {
	return s.findProfessor(ctx, "store.ProfessorByID", "id = ?", id)
}

func (s *Store) CreateProfessor(ctx context.Context, p professors.Professor) (professors.Professor, error) {
	p.Email = normalizeEmail(p.Email)
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return professors.Professor{}, fmt.Errorf("store.CreateProfessor: %w", err)
	}
	return p, nil
}

func (s *Store) findProfessor(ctx context.Context, op, query string, args ...interface{}) (professors.Professor, error) {
	var p professors.Professor
	err := s.db.WithContext(ctx).Where(query, args...).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return professors.Professor{}, fmt.Errorf("%s: %w", op, ErrProfessorNotFound)
		}
		return professors.Professor{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
