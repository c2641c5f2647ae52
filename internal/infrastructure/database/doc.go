// Package database provides relational storage connectivity for TwinkleTaps.
//
// This package manages:
//   - SQLite connections (default) with WAL mode, foreign keys and a single
//     connection so transactions serialise
//   - PostgreSQL connections through the pgx database/sql driver
//   - Dialect helpers: placeholder rebinding and row-lock clauses
//     (FOR UPDATE, FOR UPDATE SKIP LOCKED)
//   - Schema migrations embedded per dialect
//
// Every live-data query in the repositories filters tombstoned rows with
// deleted_at IS NULL; nothing is hard-deleted.
//
// Usage:
//
//	db, err := database.Open(database.Config{Driver: "sqlite", Path: "./data/twinkletaps.db"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
//	err = db.WithTx(ctx, func(tx *database.Tx) error {
//	    // ... queries on tx ...
//	    return nil
//	})
package database
