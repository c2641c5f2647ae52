package database

import (
	"context"
	"embed"
	"testing"
)

//go:embed testdata/sqlite/*.sql
var testMigrationsFS embed.FS

// useMigrations swaps the package migration source for the duration of the test.
func useMigrations(t *testing.T, fsys embed.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, dir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query error = %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "sample_items") {
		t.Fatal("table sample_items not created")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("status = %d applied, %d pending; want 1, 0", len(applied), len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "sample_items") {
		t.Error("table sample_items should have been dropped")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Errorf("status = %d applied, %d pending; want 0, 1", len(applied), len(pending))
	}

	// Nothing left to revert.
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	var empty embed.FS
	useMigrations(t, empty, ".")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestLoadMigrations_PerDialect(t *testing.T) {
	useMigrations(t, testMigrationsFS, "testdata")

	migrations, err := loadMigrations(DialectPostgres)
	if err != nil {
		t.Fatalf("loadMigrations(postgres) error = %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("loadMigrations(postgres) = %d migrations, want 0", len(migrations))
	}

	migrations, err = loadMigrations(DialectSQLite)
	if err != nil {
		t.Fatalf("loadMigrations(sqlite) error = %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("loadMigrations(sqlite) = %d migrations, want 1", len(migrations))
	}
	m := migrations[0]
	if m.Version != "20260301_090000" || m.Name != "create_sample_items" || m.UpSQL == "" || m.DownSQL == "" {
		t.Errorf("loadMigrations(sqlite)[0] = %+v", m)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"20260301_090000_create_sample_items.up.sql", "20260301_090000", true, true},
		{"20260301_090000_create_sample_items.down.sql", "20260301_090000", false, true},
		{"readme.txt", "", false, false},
		{"20260301_090000_create_sample_items.sql", "", false, false},
		{"invalid.up.sql", "", false, false},
		{"2026_0900_short.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk || version != tt.wantVersion || isUp != tt.wantIsUp {
				t.Errorf("parseMigrationFilename(%q) = %q, %v, %v; want %q, %v, %v",
					tt.filename, version, isUp, ok, tt.wantVersion, tt.wantIsUp, tt.wantOk)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := map[string]string{
		"20260301_090000_create_sample_items.up.sql":            "create_sample_items",
		"20260301_090000_initial_schema.down.sql":              "initial_schema",
		"20260315_140000_add_revoked_at_to_invitations.up.sql": "add_revoked_at_to_invitations",
	}
	for filename, want := range tests {
		if got := extractMigrationName(filename); got != want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", filename, got, want)
		}
	}
}
