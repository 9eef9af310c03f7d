package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DFBlok/market-link-app/internal/db"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/store/storetest"
	"github.com/DFBlok/market-link-app/internal/utils"
)

func TestSQLStore(t *testing.T) {
	dsn := utils.GetTestPostgresDSN()
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}

	gdb, err := db.ConnectPostgres(db.PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DisconnectPostgres(gdb) })

	storetest.Run(t, func(t *testing.T) store.Store {
		require.NoError(t, gdb.Migrator().DropTable(Models()...))
		require.NoError(t, gdb.AutoMigrate(Models()...))
		return New(gdb)
	})
}

func TestSQLStore_Close(t *testing.T) {
	dsn := utils.GetTestPostgresDSN()
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	gdb, err := db.ConnectPostgres(db.PostgresConfig{DSN: dsn, MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, New(gdb).Close(context.Background()))
}
