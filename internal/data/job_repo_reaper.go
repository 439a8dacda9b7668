package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/target/opscrm-api/internal/core"
	"github.com/target/opscrm-api/internal/data/pgxutil"
	"github.com/target/opscrm-api/internal/domain/model"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for opscrm reaper operations.
const (
	advisoryLockReaperMajor         = 1000
	advisoryLockReaperCancelledJobs = 1 // minor key for PurgeCancelledJobs
	advisoryLockReaperInactiveTmpls = 2 // minor key for PurgeInactiveTemplates
)

// PurgeCancelledJobs deletes CANCELLED jobs whose last update is older than MaxAge.
// Processes up to BatchSize jobs per call to prevent long locks and I/O spikes.
// Returns 0 without error when another reaper instance holds the lock.
func (r *JobRepo) PurgeCancelledJobs(ctx context.Context, params core.PurgeParams) (int64, error) {
	return r.reap(ctx, advisoryLockReaperCancelledJobs, func(tx *sql.Tx) (sql.Result, error) {
		cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
		return tx.ExecContext(ctx, `
			DELETE FROM jobs
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = $1
				  AND updated_at < $2
				ORDER BY updated_at
				LIMIT $3
			)
		`, string(model.JobStatusCancelled), cutoff, params.BatchSize)
	})
}

// PurgeInactiveTemplates hard-deletes inactive checklist templates that no job references
// and that have not changed for MaxAge.
func (r *JobRepo) PurgeInactiveTemplates(ctx context.Context, params core.PurgeParams) (int64, error) {
	return r.reap(ctx, advisoryLockReaperInactiveTmpls, func(tx *sql.Tx) (sql.Result, error) {
		cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
		return tx.ExecContext(ctx, `
			DELETE FROM checklist_templates t
			WHERE t.id IN (
				SELECT ct.id FROM checklist_templates ct
				WHERE NOT ct.is_active
				  AND ct.updated_at < $1
				  AND NOT EXISTS (SELECT 1 FROM jobs j WHERE j.checklist_template_id = ct.id)
				ORDER BY ct.updated_at
				LIMIT $2
			)
		`, cutoff, params.BatchSize)
	})
}

func (r *JobRepo) reap(ctx context.Context, minor int, del func(*sql.Tx) (sql.Result, error)) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				r.logger.DebugContext(ctx, "reaper lock held elsewhere", "minor", minor)
				return nil
			}

			res, err := del(tx)
			if err != nil {
				return fmt.Errorf("reaper delete: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
