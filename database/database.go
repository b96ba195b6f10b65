package database

import (
	"fmt"
	"log/slog"

	"tajwid-academy/config"
	"tajwid-academy/internal/domain/billing"
	"tajwid-academy/internal/domain/levels"
	"tajwid-academy/internal/domain/professors"
	"tajwid-academy/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates every model.
func Open(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	const op = "database.Open"

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Env != "local" {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DBURL), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("connected and migrated")
	return db, nil
}

// Migrate auto-migrates all domain models. Also used by tests against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.User{},
		&levels.Level{},
		&levels.Purchase{},
		&billing.Payment{},
		&billing.WebhookEvent{},
		&professors.Professor{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
