package gormstore

import (
	"context" // Request scoping
	"errors"  // Error matching

	"peerpay/internal/domain" // Domain models
	"peerpay/internal/store"  // Contracts

	"github.com/go-sql-driver/mysql" // MySQL error numbers
	"github.com/mattn/go-sqlite3"    // SQLite error codes
	"github.com/shopspring/decimal"  // Fixed-point deltas
	"gorm.io/gorm"                   // GORM ORM library
)

// MySQL errors raised when two units race for the same rows
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// RunInTx runs fn inside a database transaction. Lock contention reported by
// the driver is treated like a version conflict so the caller can retry.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		fnErr = fn(&gormTx{db: db, clock: s.clock})
		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case isContention(err):
		return domain.ErrVersionConflict
	case fnErr != nil && errors.Is(err, fnErr):
		return err
	default:
		return domain.Unavailable("commit", err)
	}
}

func isContention(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

type gormTx struct {
	db    *gorm.DB
	clock *store.Clock
}

func (tx *gormTx) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	return getAccount(tx.db, id)
}

// ApplyDelta is a compare-and-swap on the version column
func (tx *gormTx) ApplyDelta(_ context.Context, id string, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error) {
	cur, err := getAccount(tx.db, id)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	next := cur.Balance.Add(delta)
	if next.IsNegative() {
		return nil, domain.ErrInsufficientFunds
	}
	res := tx.db.Model(&domain.Account{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"balance": next,
			"version": expectedVersion + 1,
		})
	if res.Error != nil {
		if isContention(res.Error) {
			return nil, domain.ErrVersionConflict
		}
		return nil, domain.Unavailable("apply delta", res.Error)
	}
	// Another unit committed between the read and the update
	if res.RowsAffected == 0 {
		return nil, domain.ErrVersionConflict
	}
	cur.Balance = next
	cur.Version = expectedVersion + 1
	return cur, nil
}

func (tx *gormTx) Append(_ context.Context, rec *domain.TransferRecord) (string, error) {
	if err := rec.Validate(false); err != nil {
		return "", err
	}
	rec.ID = store.NewRecordID()
	rec.Timestamp = tx.clock.Next()
	if err := tx.db.Create(rec).Error; err != nil {
		return "", domain.Unavailable("append", err)
	}
	return rec.ID, nil
}
