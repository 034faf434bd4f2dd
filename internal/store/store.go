// Package store defines the persistence contracts the transfer core relies on.
// Balances are only ever changed through Tx.ApplyDelta, a version-checked
// conditional update, and ledger records are append-only.
package store

import (
	"context" // Request scoping

	"peerpay/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Fixed-point deltas
)

// AccountStore holds account records
type AccountStore interface {
	// CreateAccount registers a new account. The identifier must already be normalized.
	CreateAccount(ctx context.Context, acc *domain.Account) error
	// GetAccount returns a fresh read of the account or domain.ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// Directory maps human identifiers to accounts
type Directory interface {
	// Resolve returns the single account claiming identifier, domain.ErrAccountNotFound
	// when none does and domain.ErrDirectoryIntegrity when several do.
	Resolve(ctx context.Context, identifier string) (*domain.Account, error)
}

// LedgerStore is the read side of the append-only transfer ledger
type LedgerStore interface {
	// QueryByAccount returns every record sent or received by the account
	QueryByAccount(ctx context.Context, accountID string, dir domain.Direction) ([]domain.TransferRecord, error)
	// List pages through all records, newest first
	List(ctx context.Context, offset, limit int) ([]domain.TransferRecord, error)
	// Count returns the number of records in the ledger
	Count(ctx context.Context) (int64, error)
}

// Tx is one atomic unit of work. Nothing it does is visible to other
// operations until RunInTx returns nil.
type Tx interface {
	// GetAccount reads the current committed account, including its version
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// ApplyDelta adds delta to the balance if the account is still at expectedVersion.
	// It returns domain.ErrVersionConflict when the version moved and
	// domain.ErrInsufficientFunds when the result would be negative.
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error)
	// Append adds a record to the ledger, assigning its ID and Timestamp
	Append(ctx context.Context, rec *domain.TransferRecord) (string, error)
}

// Store bundles every contract with the transactional unit
type Store interface {
	AccountStore
	Directory
	LedgerStore
	// RunInTx runs fn as one all-or-nothing unit. A concurrent modification
	// detected at any point, including commit, is reported as domain.ErrVersionConflict.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
