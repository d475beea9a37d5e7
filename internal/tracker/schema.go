package tracker

import "fmt"

// DefaultTable is the bookkeeping table used when none is configured.
const DefaultTable = "schema_migrations"

// Status values stored in the status column.
const (
	StatusApplied    = "applied"
	StatusRolledBack = "rolled_back"
)

// createSchemaSQL returns the DDL for the bookkeeping table. The version
// primary key is what makes a duplicate record impossible.
func createSchemaSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version      TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    duration_ms  INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'applied'
)`, table)
}

// upgradeSchemaSQL adds the columns missing from an older bookkeeping table
// that only kept version and applied_at. It is a no-op on tables created by
// createSchemaSQL.
func upgradeSchemaSQL(table string) string {
	return fmt.Sprintf(`ALTER TABLE %s
    ADD COLUMN IF NOT EXISTS filename     TEXT NOT NULL DEFAULT '',
    ADD COLUMN IF NOT EXISTS checksum     TEXT NOT NULL DEFAULT '',
    ADD COLUMN IF NOT EXISTS applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ADD COLUMN IF NOT EXISTS duration_ms  INTEGER NOT NULL DEFAULT 0,
    ADD COLUMN IF NOT EXISTS status       TEXT NOT NULL DEFAULT 'applied'`, table)
}
