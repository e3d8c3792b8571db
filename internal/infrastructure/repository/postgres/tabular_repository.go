package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

type TabularRepository struct {
	db *sql.DB
}

func NewTabularRepository(db *sql.DB) *TabularRepository {
	return &TabularRepository{db: db}
}

func (r *TabularRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS observations (
	area_code TEXT NOT NULL,
	area_name TEXT NOT NULL,
	period TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (area_code, period)
);

CREATE INDEX IF NOT EXISTS idx_observations_period ON observations(period);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertObservations writes rows by their (area_code, period) natural key so
// re-ingestion collapses duplicates to the latest value.
func (r *TabularRepository) UpsertObservations(ctx context.Context, rows []domain.Observation) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO observations (area_code, area_name, period, value, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (area_code, period) DO UPDATE SET
	area_name = EXCLUDED.area_name,
	value = EXCLUDED.value,
	updated_at = EXCLUDED.updated_at
`, row.AreaCode, row.AreaName, row.Period, row.Value, now); err != nil {
			return fmt.Errorf("upsert observation %s: %w", row.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

// QueryObservations filters by area code and an optional year/month prefix.
// month is ignored when year is zero; pass zero for either to widen the match.
func (r *TabularRepository) QueryObservations(ctx context.Context, areaCode string, year, month int) ([]domain.Observation, error) {
	query := `
SELECT area_code, area_name, period, value
FROM observations
WHERE area_code = $1
`
	args := []any{areaCode}
	if year > 0 {
		prefix := fmt.Sprintf("%04d", year)
		if month > 0 {
			prefix = fmt.Sprintf("%04d-%02d", year, month)
		}
		query += "AND period LIKE $2\n"
		args = append(args, prefix+"%")
	}
	query += "ORDER BY period"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Observation, 0)
	for rows.Next() {
		var obs domain.Observation
		if err := rows.Scan(&obs.AreaCode, &obs.AreaName, &obs.Period, &obs.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func (r *TabularRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	return nil
}
