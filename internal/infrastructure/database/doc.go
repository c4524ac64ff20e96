// Package database provides the SQLite handle behind the session journal.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - A single-connection pool (SQLite has one writer)
//   - Versioned, additive migrations read from an fs.FS
//
// Callers embed their own migration files and pass them to Migrate, so the
// schema lives next to the code that queries it.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.ConfigFromJournal(cfg.Journal))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrationFS, "migrations"); err != nil {
//	    return err
//	}
package database
