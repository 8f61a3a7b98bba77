//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/eventhost/internal/platform/postgres"
	"github.com/phrazzld/eventhost/internal/redact"
	"github.com/stretchr/testify/require"
)

// URLEnvVar names the environment variable holding the test database URL.
const URLEnvVar = "EVENTHOST_TEST_DB_URL"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// DatabaseURL returns the test database URL, or "" when none is configured.
func DatabaseURL() string {
	return os.Getenv(URLEnvVar)
}

// ShouldSkip reports whether database tests cannot run in this environment.
func ShouldSkip() bool {
	return DatabaseURL() == ""
}

// Open connects to the test database, applies migrations and registers a
// cleanup that closes the connection. It skips the test when no database is
// configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkip() {
		t.Skipf("%s not set, skipping database test", URLEnvVar)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Open(ctx, DatabaseURL(), logger)
	require.NoError(t, err, "failed to open test database %s", redact.String(DatabaseURL()))
	t.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", logger)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Logf("rollback failed: %v", err)
		}
	}()

	fn(t, tx)
}
