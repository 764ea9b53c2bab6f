package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		public_code TEXT NOT NULL UNIQUE,
		created_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS preferences (
		tenant_id             TEXT PRIMARY KEY REFERENCES tenants(id) ON DELETE CASCADE,
		temperature           REAL,
		max_output_tokens     REAL,
		history_message_limit REAL,
		rag_max_chunks        REAL,
		rag_chunk_max_chars   REAL,
		rag_max_context_chars REAL,
		developer_logging     INTEGER NOT NULL DEFAULT 0,
		name                  TEXT NOT NULL DEFAULT '',
		description           TEXT NOT NULL DEFAULT '',
		tone                  TEXT NOT NULL DEFAULT '',
		stream_speed          TEXT NOT NULL DEFAULT '',
		opening_line          TEXT NOT NULL DEFAULT '',
		updated_at            TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS setups (
		tenant_id        TEXT PRIMARY KEY REFERENCES tenants(id) ON DELETE CASCADE,
		provider         TEXT NOT NULL DEFAULT '',
		model            TEXT NOT NULL DEFAULT '',
		api_key          TEXT NOT NULL DEFAULT '',
		routing_provider TEXT NOT NULL DEFAULT '',
		routing_model    TEXT NOT NULL DEFAULT '',
		routing_api_key  TEXT NOT NULL DEFAULT '',
		retrieval_key    TEXT NOT NULL DEFAULT '',
		updated_at       TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS rules (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT    NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		phrase     TEXT    NOT NULL,
		response   TEXT    NOT NULL,
		enabled    INTEGER NOT NULL DEFAULT 1,
		priority   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_rules_order ON rules(tenant_id, priority, created_at)`,

	`CREATE TABLE IF NOT EXISTS knowledge_items (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		title      TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS knowledge_tags (
		item_id   TEXT NOT NULL REFERENCES knowledge_items(id) ON DELETE CASCADE,
		tenant_id TEXT NOT NULL,
		tag       TEXT NOT NULL,
		PRIMARY KEY (item_id, tag)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_knowledge_tags_tenant ON knowledge_tags(tenant_id)`,

	`CREATE TABLE IF NOT EXISTS question_log (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT    NOT NULL,
		question  TEXT    NOT NULL,
		rule_id   TEXT    NOT NULL DEFAULT '',
		needs_rag INTEGER NOT NULL DEFAULT 0,
		reason    TEXT    NOT NULL DEFAULT '',
		tokens    INTEGER NOT NULL DEFAULT 0,
		asked_at  TEXT    NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_question_log_asked ON question_log(asked_at)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
