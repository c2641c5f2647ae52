package database

import (
	"errors"
	"testing"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"SQLite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"pgx", DialectPostgres, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedDriver) {
					t.Errorf("ParseDialect(%q) error = %v, want ErrUnsupportedDriver", tt.driver, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDialect(%q) error = %v", tt.driver, err)
			}
			if got != tt.want {
				t.Errorf("ParseDialect(%q) = %q, want %q", tt.driver, got, tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE t SET a = ? WHERE id = ? AND b IS NULL"

	if got := DialectSQLite.Rebind(query); got != query {
		t.Errorf("sqlite Rebind() = %q, want unchanged", got)
	}

	want := "UPDATE t SET a = $1 WHERE id = $2 AND b IS NULL"
	if got := DialectPostgres.Rebind(query); got != want {
		t.Errorf("postgres Rebind() = %q, want %q", got, want)
	}
}

func TestLockClauses(t *testing.T) {
	if got := DialectSQLite.SkipLocked(); got != "" {
		t.Errorf("sqlite SkipLocked() = %q, want empty", got)
	}
	if got := DialectPostgres.SkipLocked(); got != " FOR UPDATE SKIP LOCKED" {
		t.Errorf("postgres SkipLocked() = %q", got)
	}
	if got := DialectPostgres.ForUpdate(); got != " FOR UPDATE" {
		t.Errorf("postgres ForUpdate() = %q", got)
	}
	if got := DialectPostgres.DriverName(); got != "pgx" {
		t.Errorf("postgres DriverName() = %q, want pgx", got)
	}
}
