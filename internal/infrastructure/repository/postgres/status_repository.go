package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS file_load_status (
	source_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	target TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source_id, file_name, target)
);

CREATE INDEX IF NOT EXISTS idx_file_load_status_status ON file_load_status(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *StatusRepository) GetStatus(ctx context.Context, sourceID, fileName string, target domain.LoadTarget) (*domain.FileLoadStatus, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT source_id, file_name, target, status, message, source_url, updated_at
FROM file_load_status
WHERE source_id = $1 AND file_name = $2 AND target = $3
`, sourceID, fileName, string(target))

	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrStatusNotFound, "get status",
				fmt.Errorf("source=%s file=%s target=%s", sourceID, fileName, target))
		}
		return nil, fmt.Errorf("scan status: %w", err)
	}
	return &status, nil
}

// UpsertStatus is last-write-wins on status/message/timestamp; an empty
// source URL leaves any previously stored URL untouched.
func (r *StatusRepository) UpsertStatus(ctx context.Context, row domain.FileLoadStatus) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO file_load_status (source_id, file_name, target, status, message, source_url, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (source_id, file_name, target) DO UPDATE SET
	status = EXCLUDED.status,
	message = EXCLUDED.message,
	source_url = CASE WHEN EXCLUDED.source_url = '' THEN file_load_status.source_url ELSE EXCLUDED.source_url END,
	updated_at = EXCLUDED.updated_at
`, row.SourceID, row.FileName, string(row.Target), string(row.Status), row.Message, row.SourceURL, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

func (r *StatusRepository) ListStatuses(ctx context.Context) ([]domain.FileLoadStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_id, file_name, target, status, message, source_url, updated_at
FROM file_load_status
ORDER BY source_id, file_name, target
`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FileLoadStatus, 0)
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		out = append(out, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return out, nil
}

func (r *StatusRepository) ResetStatuses(ctx context.Context, targets []domain.LoadTarget) error {
	if len(targets) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(targets))
	args := make([]any, 0, len(targets)+1)
	args = append(args, time.Now().UTC())
	for i, target := range targets {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, string(target))
	}

	query := fmt.Sprintf(`
UPDATE file_load_status
SET status = 'not_loaded', message = '', updated_at = $1
WHERE target IN (%s)
`, strings.Join(placeholders, ","))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("reset statuses: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (domain.FileLoadStatus, error) {
	var status domain.FileLoadStatus
	var target, state string
	if err := row.Scan(&status.SourceID, &status.FileName, &target, &state, &status.Message, &status.SourceURL, &status.UpdatedAt); err != nil {
		return domain.FileLoadStatus{}, err
	}
	status.Target = domain.LoadTarget(target)
	status.Status = domain.LoadStatus(state)
	return status, nil
}
