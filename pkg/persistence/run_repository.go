package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// RunRepository stores and retrieves RunRecords in Postgres.
type RunRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRunRepository creates a run repository bound to db.
func NewRunRepository(db *sqlx.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Schema is the DDL the repository expects; callers run it once at
// startup (or via an external migration tool) before using the
// repository.
const Schema = `
CREATE TABLE IF NOT EXISTS optimization_runs (
	run_id            TEXT PRIMARY KEY,
	algorithm         TEXT NOT NULL,
	status            TEXT NOT NULL,
	task_count        INTEGER NOT NULL,
	machine_count     INTEGER NOT NULL,
	best_fitness      DOUBLE PRECISION NOT NULL,
	best_makespan     DOUBLE PRECISION NOT NULL,
	feasible          BOOLEAN NOT NULL,
	total_iterations  INTEGER NOT NULL,
	computation_time  BIGINT NOT NULL,
	solution          JSONB,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL
)`

// Create persists a finished run's record.
func (r *RunRepository) Create(ctx context.Context, rec *RunRecord) error {
	query := `
		INSERT INTO optimization_runs
			(run_id, algorithm, status, task_count, machine_count, best_fitness, best_makespan,
			 feasible, total_iterations, computation_time, solution, started_at, finished_at)
		VALUES
			(:run_id, :algorithm, :status, :task_count, :machine_count, :best_fitness, :best_makespan,
			 :feasible, :total_iterations, :computation_time, :solution, :started_at, :finished_at)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			best_fitness = EXCLUDED.best_fitness,
			best_makespan = EXCLUDED.best_makespan,
			feasible = EXCLUDED.feasible,
			total_iterations = EXCLUDED.total_iterations,
			computation_time = EXCLUDED.computation_time,
			solution = EXCLUDED.solution,
			finished_at = EXCLUDED.finished_at`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to store run record: %w", err)
	}
	return nil
}

// Get retrieves a single run by ID.
func (r *RunRepository) Get(ctx context.Context, runID string) (*RunRecord, error) {
	var rec RunRecord
	query := `SELECT * FROM optimization_runs WHERE run_id = $1`
	if err := r.db.GetContext(ctx, &rec, query, runID); err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]RunRecord, error) {
	var recs []RunRecord
	query := `SELECT * FROM optimization_runs ORDER BY finished_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return recs, nil
}
