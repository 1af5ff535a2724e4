package journal

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// migrate applies any pending schema migrations.
func (j *Journal) migrate() error {
	version, err := j.schemaVersion()
	if err != nil {
		return err
	}

	if version < 1 {
		if err := j.migrateToV1(); err != nil {
			return fmt.Errorf("migration to v1 failed: %w", err)
		}
	}

	return nil
}

// schemaVersion returns the applied schema version, 0 for a fresh database.
func (j *Journal) schemaVersion() (int, error) {
	var tableName string
	err := j.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='journal_schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM journal_schema_version").Scan(&version)
	if err != nil {
		return 0, nil
	}
	return version, nil
}

// migrateToV1 creates the initial schema.
func (j *Journal) migrateToV1() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS journal_schema_version (
			version INTEGER PRIMARY KEY
		)`,

		// Run history (append-only)
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			task TEXT NOT NULL,
			upstream_version TEXT,
			local_version TEXT,
			outcome TEXT NOT NULL,
			detail TEXT
		)`,

		`INSERT OR REPLACE INTO journal_schema_version (version) VALUES (1)`,
	}

	for _, m := range migrations {
		if _, err := j.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
