// Package dbtest opens migrated databases for tests and seeds fixtures.
//
// Tests run against a temporary SQLite file. When
// TWINKLETAPS_TEST_POSTGRES_DSN is set they run against PostgreSQL
// instead, each test in its own schema, which is the only backend that
// exercises FOR UPDATE SKIP LOCKED for real.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
	_ "github.com/twinkletaps/twinkletaps-core/migrations" // registers embedded schema
)

// PostgresDSNEnv names the variable that switches tests to PostgreSQL.
const PostgresDSNEnv = "TWINKLETAPS_TEST_POSTGRES_DSN"

// Open returns a migrated database that is closed when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()

	var (
		db  *database.DB
		err error
	)
	if dsn := os.Getenv(PostgresDSNEnv); dsn != "" {
		db = openPostgres(t, dsn)
	} else {
		db, err = database.Open(database.Config{
			Driver:      "sqlite",
			Path:        filepath.Join(t.TempDir(), "test.db"),
			WALMode:     true,
			BusyTimeout: 5,
		})
		if err != nil {
			t.Fatalf("opening test database: %v", err)
		}
		t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func openPostgres(t testing.TB, dsn string) *database.DB {
	t.Helper()

	admin, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("opening postgres: %v", err)
	}
	t.Cleanup(func() { admin.Close() }) //nolint:errcheck // Test cleanup

	schema := "tt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if _, err := admin.Exec("CREATE SCHEMA " + schema); err != nil {
		t.Fatalf("creating schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		admin.Exec("DROP SCHEMA " + schema + " CASCADE") //nolint:errcheck // Test cleanup
	})

	db, err := database.Open(database.Config{
		Driver:       "postgres",
		DSN:          withSearchPath(dsn, schema),
		MaxOpenConns: 20,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

// withSearchPath pins every pooled connection to schema.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

// Count runs a COUNT query and returns the result.
func Count(t testing.TB, db *database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, db *database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func short(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
