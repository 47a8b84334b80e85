package db

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

type counterRow struct {
	Name  string `gorm:"primaryKey"`
	Value int64
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&counterRow{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logg := logger.New(logger.Options{ServiceName: "db-test", Output: io.Discard})
	return &Client{conn: conn, logg: logg}
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&counterRow{Name: "committed", Value: 1}).Error
	}))

	var count int64
	require.NoError(t, client.DB().Model(&counterRow{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&counterRow{Name: "rolled", Value: 2}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, client.DB().Model(&counterRow{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	client := newTestClient(t)

	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&counterRow{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	})

	var count int64
	require.NoError(t, client.DB().Model(&counterRow{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestNew_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: io.Discard})

	client, err := New(ctx, config.DBConfig{
		Driver:       DriverSQLite,
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx))

	_, err = New(ctx, config.DBConfig{Driver: "mysql", DSN: "x"}, logg)
	require.ErrorContains(t, err, "unsupported database driver")

	_, err = New(ctx, config.DBConfig{Driver: DriverSQLite}, logg)
	require.Error(t, err)
}
