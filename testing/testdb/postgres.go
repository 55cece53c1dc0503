package testdb

import (
	"context"
	"strings"
	"sync"
	"testing"

	"college-erp/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

var (
	sharedContainer *PostgresContainer
	sharedOnce      sync.Once
	migrateOnce     sync.Once
)

// PostgresContainer wraps the postgres testcontainer
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DB        *bun.DB
	DSN       string
}

// SetupSharedPostgres starts one PostgreSQL container per test binary and
// applies the service schema to it.
//
// Tests using the shared container must not run in parallel with each other.
//
// Usage:
//
//	func TestRepository(t *testing.T) {
//	    pg := testdb.SetupSharedPostgres(t)
//
//	    t.Run("Case", func(t *testing.T) {
//	        testdb.CleanupTables(t, pg.DB)
//	        // ...
//	    })
//	}
func SetupSharedPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	sharedOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2),
			),
		)
		require.NoError(t, err)

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)

		database, err := db.NewWithDSN(ctx, connStr)
		require.NoError(t, err)

		sharedContainer = &PostgresContainer{
			Container: pgContainer,
			DB:        database,
			DSN:       connStr,
		}
	})
	require.NotNil(t, sharedContainer, "shared postgres container failed to start")

	migrateOnce.Do(func() {
		require.NoError(t, db.RunMigrations(context.Background(), sharedContainer.DB))
	})

	return sharedContainer
}

// Cleanup terminates the container. Call it from TestMain after m.Run, not from individual tests.
func (pc *PostgresContainer) Cleanup() {
	ctx := context.Background()

	if pc.DB != nil {
		pc.DB.Close()
	}
	if pc.Container != nil {
		_ = pc.Container.Terminate(ctx)
	}
}

// CleanupTables truncates tables, or every service table when none are given.
func CleanupTables(t *testing.T, database *bun.DB, tables ...string) {
	t.Helper()

	if len(tables) == 0 {
		tables = db.Tables
	}

	_, err := database.ExecContext(context.Background(),
		"TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err, "failed to truncate tables: %v", tables)
}

// Shutdown releases the shared container if one was started.
func Shutdown() {
	if sharedContainer != nil {
		sharedContainer.Cleanup()
	}
}
