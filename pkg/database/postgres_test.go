package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/topmover/backend/pkg/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(&config.Config{Database: config.DatabaseConfig{URL: "://bad"}})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := Migration{
		Name: "scratch",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS migrate_scratch (id INT PRIMARY KEY)`,
		},
	}
	t.Cleanup(func() { _, _ = db.Pool.Exec(ctx, `DROP TABLE IF EXISTS migrate_scratch`) })

	require.NoError(t, db.Migrate(ctx, m))
	require.NoError(t, db.Migrate(ctx, m))
}

func TestMigrate_RollsBackFailedStep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Migrate(ctx, Migration{
		Name: "broken",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS migrate_rollback (id INT)`,
			`THIS IS NOT SQL`,
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration broken failed")

	var exists bool
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'migrate_rollback')`,
	).Scan(&exists))
	assert.False(t, exists)
}
