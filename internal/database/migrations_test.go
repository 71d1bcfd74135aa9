package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups), "every up migration needs a down migration")

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		assert.Contains(t, downs, down)
	}
}

func TestMigrations_UsageTableStoresCountsOnly(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_create_analysis_usage_daily.up.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "analysis_usage_daily")
	assert.Contains(t, sql, "date DATE PRIMARY KEY")
	for _, forbidden := range []string{"BYTEA", "JSONB", "landmark"} {
		assert.NotContains(t, sql, forbidden)
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig("postgres://localhost/phiface")
	assert.Equal(t, "postgres://localhost/phiface", cfg.DSN)
	assert.Greater(t, cfg.MaxConns, cfg.MinConns)
}
