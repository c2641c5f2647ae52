package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*Tx)(nil)
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		rel  string
		wal  bool
	}{
		{"flat path with WAL", "test.db", true},
		{"nested directories are created", filepath.Join("a", "b", "test.db"), true},
		{"rollback journal", "plain.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), tt.rel)
			db, err := Open(Config{Path: dbPath, WALMode: tt.wal, BusyTimeout: 5})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer db.Close() //nolint:errcheck // test cleanup

			if _, err := os.Stat(dbPath); err != nil {
				t.Errorf("database file not created: %v", err)
			}
			if db.Path() != dbPath {
				t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
			}
			if db.Dialect() != DialectSQLite {
				t.Errorf("Dialect() = %v, want %v", db.Dialect(), DialectSQLite)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on closed database should fail")
	}
}

func TestClose_NilIsNoop(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("Close() on unopened DB error = %v", err)
	}
}

func TestSQLite_SingleConnection(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	for _, stmt := range []string{
		"CREATE TABLE parents (id TEXT PRIMARY KEY)",
		"CREATE TABLE children (id TEXT PRIMARY KEY, parent_id TEXT NOT NULL REFERENCES parents(id))",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("ExecContext(%q) error = %v", stmt, err)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO children (id, parent_id) VALUES (?, ?)", "c1", "missing"); err == nil {
		t.Error("insert with dangling foreign key should fail")
	}
}

func TestTx_CommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE tx_test (value TEXT NOT NULL)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	for _, commit := range []bool{true, false} {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if tx.Dialect() != DialectSQLite {
			t.Errorf("Tx.Dialect() = %v, want %v", tx.Dialect(), DialectSQLite)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO tx_test (value) VALUES (?)", "row"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if commit {
			err = tx.Commit()
		} else {
			err = tx.Rollback()
		}
		if err != nil {
			t.Fatalf("finishing tx (commit=%v) error = %v", commit, err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_test").Scan(&count); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 (only the committed insert)", count)
	}
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE with_tx_test (value TEXT NOT NULL)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO with_tx_test (value) VALUES (?)", "kept")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	errAbort := errors.New("abort")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO with_tx_test (value) VALUES (?)", "dropped"); err != nil {
			return err
		}
		return errAbort
	})
	if err != errAbort { //nolint:errorlint // must be returned unwrapped
		t.Fatalf("WithTx() error = %v, want %v unwrapped", err, errAbort)
	}

	var value string
	if err := db.QueryRowContext(ctx, "SELECT group_concat(value) FROM with_tx_test").Scan(&value); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if value != "kept" {
		t.Errorf("rows = %q, want %q", value, "kept")
	}
}

func TestWithTx_ConcurrentWritersSerialise(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE counter (n INTEGER NOT NULL)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO counter (n) VALUES (0)"); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	const workers = 20
	errs := make(chan error, workers)
	for range workers {
		go func() {
			errs <- db.WithTx(ctx, func(tx *Tx) error {
				var n int
				if err := tx.QueryRowContext(ctx, "SELECT n FROM counter").Scan(&n); err != nil {
					return err
				}
				_, err := tx.ExecContext(ctx, "UPDATE counter SET n = ?", n+1)
				return err
			})
		}()
	}
	for range workers {
		if err := <-errs; err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT n FROM counter").Scan(&n); err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if n != workers {
		t.Errorf("counter = %d, want %d (lost update)", n, workers)
	}
}

// TestOpenUnsupportedDriver verifies unknown drivers are rejected.
func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("Open() error = %v, want ErrUnsupportedDriver", err)
	}
}

// TestOpenPostgresRequiresDSN verifies the postgres backend needs a DSN.
func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres"}); err == nil {
		t.Error("Open() expected error without DSN")
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := Open(Config{
		Path:        dbPath,
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}
