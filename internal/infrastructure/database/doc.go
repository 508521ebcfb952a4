// Package database provides the SQLite database used by the bridge.
//
// It holds the write audit trail. Sensor values are not persisted.
//
// This package manages:
//   - Connection setup with WAL mode and busy timeout
//   - Versioned migrations read from an fs.FS
//   - Transactions via InTx
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql.
package database
