package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type ledgerRow struct {
	ID   int
	Note string
}

func openSQLite(t *testing.T, cfg *gorm.Config) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	conn := openSQLite(t, &gorm.Config{SkipDefaultTransaction: true})
	client := NewFromConn(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Note: "kept"}).Error
	}))
	require.Equal(t, int64(1), countRows(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Note: "dropped"}).Error)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	require.Equal(t, int64(1), countRows(t, conn))

	require.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Note: "panicked"}).Error)
			panic("kaboom")
		})
	})
	require.Equal(t, int64(1), countRows(t, conn))
}

func TestPingAndClose(t *testing.T) {
	client := NewFromConn(openSQLite(t, &gorm.Config{}))
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	require.Error(t, client.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &logs})
	conn := openSQLite(t, &gorm.Config{Logger: newQueryLogger(logg, time.Nanosecond)})

	require.NoError(t, conn.Create(&ledgerRow{Note: "slow"}).Error)
	require.Contains(t, logs.String(), "db.query.slow")

	logs.Reset()
	require.Error(t, conn.Exec("SELECT * FROM missing_table").Error)
	require.Contains(t, logs.String(), "db.query.failed")

	logs.Reset()
	var row ledgerRow
	err := conn.Where("id = ?", 999).First(&row).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.False(t, strings.Contains(logs.String(), "db.query.failed"))
}

func TestQueryLoggerQuietWithoutThreshold(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &logs})
	conn := openSQLite(t, &gorm.Config{Logger: newQueryLogger(logg, 0)})
	require.NoError(t, conn.Create(&ledgerRow{Note: "fast"}).Error)
	require.Empty(t, logs.String())
}
