package archive

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS passes (
		id          TEXT PRIMARY KEY,
		source      TEXT    NOT NULL,
		category    TEXT    NOT NULL DEFAULT '',
		date_window TEXT    NOT NULL DEFAULT '',
		started_at  TEXT    NOT NULL,
		finished_at TEXT    NOT NULL,
		items       INTEGER NOT NULL DEFAULT 0,
		error       TEXT    NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS items (
		pass_id      TEXT    NOT NULL REFERENCES passes(id),
		seq          INTEGER NOT NULL,
		item_id      TEXT    NOT NULL DEFAULT '',
		title        TEXT    NOT NULL DEFAULT '',
		body         TEXT    NOT NULL DEFAULT '',
		url          TEXT    NOT NULL DEFAULT '',
		category     TEXT    NOT NULL DEFAULT '',
		author       TEXT    NOT NULL DEFAULT '',
		published_at TEXT    NOT NULL DEFAULT '',
		replies      INTEGER NOT NULL DEFAULT 0,
		likes        INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (pass_id, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
		title,
		body,
		content=items,
		content_rowid=rowid
	)`,

	`CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
		INSERT INTO items_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
	END`,
}

// migrate brings the schema to schemaVersion. DDL is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("archive: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("archive: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("archive: record schema version: %w", err)
	}
	return nil
}
