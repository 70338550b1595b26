package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
-- Constructions (body holds the JSON-encoded fragment)
CREATE TABLE IF NOT EXISTS fragments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    class TEXT NOT NULL,
    body TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fragments_class ON fragments(class);

-- Concept hierarchy, replayed in seq order
CREATE TABLE IF NOT EXISTS concepts (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    concept TEXT NOT NULL,
    parent TEXT NOT NULL DEFAULT ''
);

-- Dirty tracking for JSONL export
CREATE TABLE IF NOT EXISTS dirty_fragments (
    fragment_id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,  -- 'insert', 'update', 'delete'
    dirty_at TEXT NOT NULL
);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TRIGGER IF NOT EXISTS fragment_insert_dirty
AFTER INSERT ON fragments
BEGIN
    INSERT OR REPLACE INTO dirty_fragments (fragment_id, operation, dirty_at)
    VALUES (NEW.id, 'insert', datetime('now'));
END;

CREATE TRIGGER IF NOT EXISTS fragment_update_dirty
AFTER UPDATE ON fragments
BEGIN
    INSERT OR REPLACE INTO dirty_fragments (fragment_id, operation, dirty_at)
    VALUES (NEW.id, 'update', datetime('now'));
END;

CREATE TRIGGER IF NOT EXISTS fragment_delete_dirty
AFTER DELETE ON fragments
BEGIN
    INSERT OR REPLACE INTO dirty_fragments (fragment_id, operation, dirty_at)
    VALUES (OLD.id, 'delete', datetime('now'));
END;
`

// InitSchema initializes the database schema.
// Runs integrity validation before migrations on existing databases.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// Schema version table doesn't exist yet, create fresh schema
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}
	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns 0 and an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check on the database.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	return rows.Err()
}

// ResetSchema drops all tables and recreates the schema.
// Only use for testing.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	for _, trigger := range []string{"fragment_insert_dirty", "fragment_update_dirty", "fragment_delete_dirty"} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %s", trigger)); err != nil {
			return fmt.Errorf("failed to drop trigger %s: %w", trigger, err)
		}
	}
	for _, table := range []string{"dirty_fragments", "concepts", "fragments", "schema_version"} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return InitSchema(ctx, db)
}
