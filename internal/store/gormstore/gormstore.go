// Package gormstore implements the store contracts on top of gorm.
// MySQL is the production driver; SQLite backs embedded runs and tests.
package gormstore

import (
	"context" // Request scoping
	"errors"  // Error matching
	"time"    // Slow query threshold

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Contracts

	"github.com/sirupsen/logrus" // Logrus for gorm's logger output
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/sqlite"      // SQLite driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger
)

// Store is a gorm-backed store.Store
type Store struct {
	db    *gorm.DB
	clock *store.Clock
}

var _ store.Store = (*Store)(nil)

// New wraps an open gorm connection
func New(db *gorm.DB) *Store {
	return &Store{db: db, clock: store.NewClock(nil)}
}

// gormConfig routes gorm's own logging through logrus and translates driver
// errors such as duplicate keys into gorm sentinels.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log slow queries
			LogLevel:                  logger.Warn,            // Warnings and errors only
			IgnoreRecordNotFoundError: true,                   // Not found is a normal outcome
		}),
	}
}

// OpenMySQL connects to MySQL with the given DSN
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, domain.Unavailable("open mysql", err)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database. SQLite allows one writer,
// so the pool is limited to one connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, domain.Unavailable("open sqlite", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, domain.Unavailable("open sqlite", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.Account{}, &domain.TransferRecord{}); err != nil {
		return domain.Unavailable("migrate", err)
	}
	return nil
}

// CreateAccount inserts a new account with a unique identifier
func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account) error {
	store.PrepareAccount(acc, s.clock)
	if err := acc.Validate(); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	var taken int64
	if err := db.Model(&domain.Account{}).Where("identifier = ?", acc.Identifier).Count(&taken).Error; err != nil {
		return domain.Unavailable("create account", err)
	}
	if taken > 0 {
		return domain.ErrIdentifierTaken
	}
	if err := db.Create(acc).Error; err != nil {
		// The unique index still guards concurrent registrations
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrIdentifierTaken
		}
		return domain.Unavailable("create account", err)
	}
	return nil
}

// GetAccount reads an account by ID
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(s.db.WithContext(ctx), id)
}

func getAccount(db *gorm.DB, id string) (*domain.Account, error) {
	var acc domain.Account
	if err := db.Where("id = ?", id).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.Unavailable("get account", err)
	}
	return &acc, nil
}

// Resolve finds the account claiming identifier
func (s *Store) Resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	var accs []domain.Account
	// Two rows are enough to tell a unique match from an integrity fault
	err := s.db.WithContext(ctx).
		Where("identifier = ?", domain.NormalizeIdentifier(identifier)).
		Limit(2).
		Find(&accs).Error
	if err != nil {
		return nil, domain.Unavailable("resolve", err)
	}
	switch len(accs) {
	case 0:
		return nil, domain.ErrAccountNotFound
	case 1:
		return &accs[0], nil
	default:
		return nil, domain.ErrDirectoryIntegrity
	}
}
