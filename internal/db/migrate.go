// Package db opens the configured SQL database and manages its schema.
package db

import (
	"context" // Request scoping
	"fmt"     // Error formatting

	"peerpay/internal/config"          // Store driver selection
	"peerpay/internal/domain"          // Domain models
	"peerpay/internal/store/gormstore" // Gorm-backed store

	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// Open connects to the SQL database selected by cfg.StoreDriver
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		return gormstore.OpenMySQL(cfg.DSN())
	case config.DriverSQLite:
		return gormstore.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store driver %q has no SQL database", cfg.StoreDriver)
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	if err := gormstore.Migrate(db); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// PromoteAdmin grants the admin role to the account claiming identifier
func PromoteAdmin(ctx context.Context, db *gorm.DB, identifier string) error {
	res := db.WithContext(ctx).Model(&domain.Account{}).
		Where("identifier = ?", domain.NormalizeIdentifier(identifier)).
		Update("role", domain.RoleAdmin)
	if res.Error != nil {
		return domain.Unavailable("promote admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	logrus.WithField("identifier", identifier).Info("Account promoted to admin")
	return nil
}
