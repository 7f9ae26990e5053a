// Package migration creates the ledger and document schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		// payload is JSON, not JSONB: the stored bytes are the hashed canonical form.
		Name: "create_table_evidence_records",
		SQL: `CREATE TABLE IF NOT EXISTS evidence_records (
  incident_id   TEXT        NOT NULL,
  block_index   INTEGER     NOT NULL CHECK (block_index >= 1),
  evidence_id   TEXT        NOT NULL UNIQUE,
  evidence_type TEXT        NOT NULL CHECK (evidence_type IN ('screenshot', 'text', 'file', 'metadata')),
  payload       JSON        NOT NULL,
  content_hash  TEXT        NOT NULL CHECK (length(content_hash) = 64),
  previous_hash TEXT        NOT NULL,
  captured_by   TEXT        NOT NULL,
  captured_at   TIMESTAMPTZ NOT NULL,
  verified      BOOLEAN     NOT NULL DEFAULT false,
  PRIMARY KEY (incident_id, block_index)
);`,
	},
	{
		Name: "create_function_evidence_records_immutable",
		SQL: `CREATE OR REPLACE FUNCTION evidence_records_immutable() RETURNS trigger AS $$
BEGIN
  IF TG_OP = 'DELETE' THEN
    RAISE EXCEPTION 'evidence records are append-only';
  END IF;
  IF NEW.incident_id   IS DISTINCT FROM OLD.incident_id
  OR NEW.block_index   IS DISTINCT FROM OLD.block_index
  OR NEW.evidence_id   IS DISTINCT FROM OLD.evidence_id
  OR NEW.evidence_type IS DISTINCT FROM OLD.evidence_type
  OR NEW.payload::text IS DISTINCT FROM OLD.payload::text
  OR NEW.content_hash  IS DISTINCT FROM OLD.content_hash
  OR NEW.previous_hash IS DISTINCT FROM OLD.previous_hash
  OR NEW.captured_by   IS DISTINCT FROM OLD.captured_by
  OR NEW.captured_at   IS DISTINCT FROM OLD.captured_at THEN
    RAISE EXCEPTION 'evidence records are append-only';
  END IF;
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;`,
	},
	{
		Name: "drop_trigger_evidence_records_immutable",
		SQL:  `DROP TRIGGER IF EXISTS trg_evidence_records_immutable ON evidence_records;`,
	},
	{
		Name: "create_trigger_evidence_records_immutable",
		SQL: `CREATE TRIGGER trg_evidence_records_immutable
  BEFORE UPDATE OR DELETE ON evidence_records
  FOR EACH ROW EXECUTE FUNCTION evidence_records_immutable();`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  incident_id       TEXT        NULL,
  document_type     TEXT        NOT NULL CHECK (document_type IN ('incident_report', 'custom_report', 'executive_summary')),
  title             TEXT        NOT NULL,
  verification_code TEXT        NOT NULL UNIQUE,
  content_hash      TEXT        NOT NULL CHECK (length(content_hash) = 64),
  content_type      TEXT        NOT NULL,
  storage_path      TEXT        NOT NULL UNIQUE,
  size              BIGINT      NOT NULL CHECK (size >= 0),
  generated_by      TEXT        NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
  is_verified       BOOLEAN     NOT NULL DEFAULT true,
  revoked_at        TIMESTAMPTZ NULL
);`,
	},
	{
		Name: "create_index_documents_incident_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_incident_id ON documents (incident_id);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
}

// sentinelQuery is true once both tables exist.
const sentinelQuery = "SELECT to_regclass('public.evidence_records') IS NOT NULL AND to_regclass('public.documents') IS NOT NULL"

// EnsureMigrated checks if the schema exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	logger = logger.With("component", "database", "db_host", dbHost)

	logger.Info("checking schema", "event", "db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		logger.Error("failed to check sentinel tables",
			"event", "db_migration_failed",
			"status", "error",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel tables: %w", err)
	}

	if exists {
		logger.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	logger.Info("applying migration", "event", "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("migration step failed",
				"event", "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info("migration step applied",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	logger.Info("migration complete",
		"event", "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
