//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func migrationsRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// newPostgresTestDB starts a disposable postgres and applies the SQL migrations
func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("magpie_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, "postgres", migrationsRoot(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	return db
}

func TestPostgres_MigratedSchemaServesRepositories(t *testing.T) {
	db := newPostgresTestDB(t)
	ctx := context.Background()
	products := NewGormProductRepository(db)
	orders := NewGormOrderRepository(db)

	p := newTestProduct(t, "1", "Lamp", "Home", 19.99)
	require.NoError(t, products.Save(ctx, p))

	o, err := commerce.NewOrder("1-1700000000000-0", "7", commerce.OrderStatusShipped, syncTime, syncTime)
	require.NoError(t, err)
	require.NoError(t, o.AddItem(p.ID, 3, p.Price))
	require.NoError(t, NewGormUnitOfWork(db).Execute(ctx, func(repos ingest.TransactionalRepositories) error {
		return repos.OrderRepo().Create(ctx, o)
	}))

	found, err := orders.FindByExternalID(ctx, "1-1700000000000-0")
	require.NoError(t, err)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("59.97")))
	require.Len(t, found.Items, 1)

	t.Run("items cascade with their order", func(t *testing.T) {
		require.NoError(t, db.Exec("DELETE FROM orders WHERE id = ?", o.ID).Error)
		var remaining int64
		require.NoError(t, db.Table("order_items").Where("order_id = ?", o.ID).Count(&remaining).Error)
		assert.Zero(t, remaining)
	})

	t.Run("dashboard queries run on postgres", func(t *testing.T) {
		repo := NewGormDashboardRepository(db)
		_, err := repo.GetStoreTotals(ctx)
		require.NoError(t, err)
		last, err := repo.GetLastSyncTime(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.True(t, last.Equal(syncTime))
	})
}
