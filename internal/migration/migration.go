package migration

import (
	"context"

	"demounit/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the score ledger schema. The statements are
// valid on both SQLite and PostgreSQL.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create validation_runs table"))
	}

	if err := r.createScoresTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create validation_scores table"))
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS validation_runs (
			id VARCHAR(36) PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// createScoresTable stores one row per test x model cell. value and
// prediction are NULL when not finite or absent.
func (r *MigrationRunner) createScoresTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS validation_scores (
			run_id VARCHAR(36) NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			test_alias VARCHAR(64) NOT NULL,
			test_name TEXT NOT NULL,
			model_name TEXT NOT NULL,
			kind VARCHAR(32) NOT NULL DEFAULT '',
			value DOUBLE PRECISION,
			prediction DOUBLE PRECISION,
			prediction_present BOOLEAN NOT NULL DEFAULT FALSE,
			observation_mean DOUBLE PRECISION,
			observation_std DOUBLE PRECISION,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_validation_runs_started_at ON validation_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_scores_model ON validation_scores(model_name)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_scores_test ON validation_scores(test_alias)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
