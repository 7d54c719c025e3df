package database

import (
	"context"
	"fmt"
	"time"
)

// Fixed width so that started_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000Z"

type UpdateRunRow struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Provider   string    `json:"provider"`
	Outcome    string    `json:"outcome"`
	RowsBefore int       `json:"rows_before"`
	RowsAfter  int       `json:"rows_after"`
	Message    string    `json:"message"`
}

func (d *Database) SaveUpdateRun(ctx context.Context, r UpdateRunRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO update_run (id, started_at, finished_at, provider, outcome, rows_before, rows_after, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(runTimeLayout),
		r.FinishedAt.UTC().Format(runTimeLayout),
		r.Provider,
		r.Outcome,
		r.RowsBefore,
		r.RowsAfter,
		r.Message)
	if err != nil {
		return fmt.Errorf("saving update run: %w", err)
	}
	return nil
}

// GetUpdateRuns returns the most recent runs, newest first.
func (d *Database) GetUpdateRuns(ctx context.Context, limit int) ([]UpdateRunRow, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := d.read.QueryContext(ctx, `
		SELECT id, started_at, finished_at, provider, outcome, rows_before, rows_after, message
		FROM update_run
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching update runs: %w", err)
	}
	defer rows.Close()

	var runs []UpdateRunRow
	for rows.Next() {
		var r UpdateRunRow
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Provider, &r.Outcome, &r.RowsBefore, &r.RowsAfter, &r.Message); err != nil {
			return nil, fmt.Errorf("scanning update run: %w", err)
		}
		if r.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(runTimeLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading update run rows: %w", err)
	}
	return runs, nil
}

// PurgeUpdateRuns deletes runs started before now minus the retention period.
func (d *Database) PurgeUpdateRuns(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if retentionDays < 1 {
		return 0, nil
	}
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour).UTC().Format(runTimeLayout)
	res, err := d.write.ExecContext(ctx, `DELETE FROM update_run WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging update runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
