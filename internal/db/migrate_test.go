package db

import (
	"context"
	"path/filepath"
	"testing"

	"peerpay/internal/config"
	"peerpay/internal/domain"
	"peerpay/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigrateAndPromote(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "peerpay.db")}
	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	s := gormstore.New(gdb)
	acc := &domain.Account{Identifier: "ops@example.com", DisplayName: "Ops"}
	require.NoError(t, s.CreateAccount(ctx, acc))

	require.NoError(t, PromoteAdmin(ctx, gdb, "OPS@example.com"))
	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	assert.ErrorIs(t, PromoteAdmin(ctx, gdb, "nobody@example.com"), domain.ErrAccountNotFound)
}

func TestOpenRejectsMemoryDriver(t *testing.T) {
	_, err := Open(&config.Config{StoreDriver: config.DriverMemory})
	assert.Error(t, err)
}
