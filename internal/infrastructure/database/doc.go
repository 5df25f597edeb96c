// Package database provides SQLite connectivity for netmap-core.
//
// This package manages:
//   - The connection, with WAL mode and foreign keys enforced
//   - Embedded schema migrations (YYYYMMDD_HHMMSS_name.up.sql / .down.sql)
//   - Transaction helpers for read-then-write checks
//
// Foreign keys are always on because device deletion cascades to the
// device's connections and configuration files.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
