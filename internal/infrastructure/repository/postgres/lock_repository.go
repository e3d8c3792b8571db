package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

// LockRepository is the cross-instance half of the ingestion lock: a row per
// job name whose insert races are settled by the primary key, plus a
// heartbeat row per server instance. A lock whose owner's heartbeat is older
// than the TTL is reclaimed before the insert attempt.
type LockRepository struct {
	db      *sql.DB
	lockTTL time.Duration
}

func NewLockRepository(db *sql.DB, lockTTL time.Duration) *LockRepository {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &LockRepository{db: db, lockTTL: lockTTL}
}

func (r *LockRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083103)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS process_locks (
	job_name TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	acquired_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS server_instances (
	instance_id TEXT PRIMARY KEY,
	last_alive TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LockRepository) AcquireJob(ctx context.Context, jobName, instanceID string) error {
	// Register our own heartbeat first: a lock row whose owner never wrote
	// to server_instances would be invisible to the reclamation join below,
	// and a crash between acquisition and the first heartbeat tick would
	// hold the job forever.
	if err := r.Heartbeat(ctx, instanceID); err != nil {
		return fmt.Errorf("register lock owner: %w", err)
	}

	// Reclaim a lock whose owner stopped heartbeating.
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM process_locks
USING server_instances
WHERE process_locks.job_name = $1
  AND process_locks.instance_id = server_instances.instance_id
  AND server_instances.last_alive < $2
`, jobName, time.Now().UTC().Add(-r.lockTTL)); err != nil {
		return fmt.Errorf("reclaim stale lock: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
INSERT INTO process_locks (job_name, instance_id, acquired_at)
VALUES ($1,$2,$3)
ON CONFLICT (job_name) DO NOTHING
`, jobName, instanceID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert lock row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrLoadInProgress, "acquire distributed lock",
			fmt.Errorf("job %q is held by another instance", jobName))
	}
	return nil
}

// ReleaseJob deletes the lock row only when it is still owned by the given
// instance, so a restarted process cannot free another instance's lock.
func (r *LockRepository) ReleaseJob(ctx context.Context, jobName, instanceID string) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM process_locks
WHERE job_name = $1 AND instance_id = $2
`, jobName, instanceID); err != nil {
		return fmt.Errorf("release lock row: %w", err)
	}
	return nil
}

func (r *LockRepository) Heartbeat(ctx context.Context, instanceID string) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO server_instances (instance_id, last_alive)
VALUES ($1,$2)
ON CONFLICT (instance_id) DO UPDATE SET last_alive = EXCLUDED.last_alive
`, instanceID, time.Now().UTC()); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}
