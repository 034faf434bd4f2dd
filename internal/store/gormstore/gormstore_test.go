package gormstore

import (
	"context"
	"testing"
	"time"

	"peerpay/internal/domain"
	"peerpay/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func seed(t *testing.T, s *Store, identifier, balance string) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		Identifier:  identifier,
		DisplayName: identifier,
		Balance:     decimal.RequireFromString(balance),
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func transfer(ctx context.Context, s *Store, from, to *domain.Account, amount decimal.Decimal) (*domain.TransferRecord, error) {
	var rec *domain.TransferRecord
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		sender, err := tx.GetAccount(ctx, from.ID)
		if err != nil {
			return err
		}
		receiver, err := tx.GetAccount(ctx, to.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, sender.ID, amount.Neg(), sender.Version); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, receiver.ID, amount, receiver.Version); err != nil {
			return err
		}
		rec = &domain.TransferRecord{
			FromAccountID: sender.ID, ToAccountID: receiver.ID,
			FromDisplayName: sender.DisplayName, ToDisplayName: receiver.DisplayName,
			Amount: amount, Type: domain.TypeTransfer,
		}
		_, err = tx.Append(ctx, rec)
		return err
	})
	return rec, err
}

func TestCreateGetResolve(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "Alice@Example.com", "1000.00")

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Identifier)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.RoleUser, got.Role)

	byID, err := s.Resolve(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byID.ID)

	_, err = s.Resolve(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	err = s.CreateAccount(ctx, &domain.Account{Identifier: "alice@example.com", DisplayName: "again"})
	assert.ErrorIs(t, err, domain.ErrIdentifierTaken)
}

func TestTransferCommits(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "a@example.com", "1000.00")
	b := seed(t, s, "b@example.com", "1000.00")

	rec, err := transfer(ctx, s, a, b, decimal.RequireFromString("250.00"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.WithinDuration(t, time.Now(), rec.Timestamp, time.Minute)

	gotA, _ := s.GetAccount(ctx, a.ID)
	gotB, _ := s.GetAccount(ctx, b.ID)
	assert.True(t, gotA.Balance.Equal(decimal.RequireFromString("750.00")), gotA.Balance.String())
	assert.True(t, gotB.Balance.Equal(decimal.RequireFromString("1250.00")), gotB.Balance.String())
	assert.Equal(t, int64(1), gotA.Version)

	out, err := s.QueryByAccount(ctx, a.ID, domain.DirectionOut)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, rec.ID, out[0].ID)
	assert.Equal(t, "b@example.com", out[0].ToDisplayName)

	in, err := s.QueryByAccount(ctx, b.ID, domain.DirectionIn)
	require.NoError(t, err)
	require.Len(t, in, 1)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStaleVersionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "a@example.com", "100.00")
	b := seed(t, s, "b@example.com", "0")

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.ApplyDelta(ctx, b.ID, decimal.NewFromInt(10), 0); err != nil {
			return err
		}
		_, err := tx.ApplyDelta(ctx, a.ID, decimal.NewFromInt(-10), 3)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	gotB, _ := s.GetAccount(ctx, b.ID)
	assert.True(t, gotB.Balance.IsZero())
	assert.Equal(t, int64(0), gotB.Version)
}

func TestConcurrentCommitBetweenReadAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "a@example.com", "100.00")
	b := seed(t, s, "b@example.com", "0")

	// Bump the sender's version after ApplyDelta has read it, as a competing
	// unit committing in between would.
	var bumped bool
	var bumpErr error
	require.NoError(t, s.db.Callback().Update().Before("gorm:update").Register("test:bump_version", func(db *gorm.DB) {
		if bumped || db.Statement.Table != "accounts" {
			return
		}
		bumped = true
		bumpErr = db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE accounts SET version = version + 1 WHERE id = ?", a.ID).Error
	}))

	_, err := transfer(ctx, s, a, b, decimal.NewFromInt(10))
	require.True(t, bumped)
	require.NoError(t, bumpErr)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	gotA, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.Balance.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, int64(0), gotA.Version)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsufficientFundsRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "a@example.com", "10.00")
	b := seed(t, s, "b@example.com", "0")

	_, err := transfer(ctx, s, a, b, decimal.RequireFromString("10.01"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	n, _ := s.Count(ctx)
	assert.Zero(t, n)
	gotA, _ := s.GetAccount(ctx, a.ID)
	assert.True(t, gotA.Balance.Equal(decimal.NewFromInt(10)))
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	a := seed(t, s, "a@example.com", "100.00")
	b := seed(t, s, "b@example.com", "0")

	for i := 1; i <= 3; i++ {
		_, err := transfer(ctx, s, a, b, decimal.NewFromInt(int64(i)))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(3)))

	rest, err := s.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestQueryByAccountRejectsUnknownDirection(t *testing.T) {
	s := setup(t)
	_, err := s.QueryByAccount(context.Background(), "x", domain.Direction("sideways"))
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}
