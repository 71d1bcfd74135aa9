//go:build integration

package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/phiface/internal/database"
	"github.com/saturnino-fabrica-de-software/phiface/internal/usage"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "phiface_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/phiface_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer pool.Close()

	db := database.SQLDB(pool)
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, "phiface_test")
	require.NoError(t, err)

	t.Run("Up runs migrations and is idempotent", func(t *testing.T) {
		require.NoError(t, migrator.Up())
		require.NoError(t, migrator.Up())

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(1), version)

		var tracked bool
		err = pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, database.MigrationsTable).Scan(&tracked)
		require.NoError(t, err)
		assert.True(t, tracked)
	})

	t.Run("usage counters round trip", func(t *testing.T) {
		repo := usage.NewRepository(pool)
		day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

		require.NoError(t, repo.IncrementDaily(ctx, day, usage.FieldSucceeded, 1))
		require.NoError(t, repo.IncrementDaily(ctx, day, usage.FieldSucceeded, 1))
		require.NoError(t, repo.IncrementDaily(ctx, day, usage.FieldFailed, 1))

		totals, err := repo.AggregatePeriod(ctx, day, day)
		require.NoError(t, err)
		assert.Equal(t, &usage.Totals{Analyses: 3, Succeeded: 2, Failed: 1}, totals)

		days, err := repo.GetDailyUsage(ctx, day.AddDate(0, 0, -1), day)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, 3, days[0].Analyses)

		deleted, err := repo.DeleteBefore(ctx, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("Down rolls back", func(t *testing.T) {
		require.NoError(t, migrator.Down())

		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = 'analysis_usage_daily'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	require.NoError(t, migrator.Close())
}
