package db

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/david/grantdesk/internal/models"
)

// SyncLog provides read/write access to the sync_runs table.
type SyncLog struct {
	pool Pool
}

func NewSyncLog(pool Pool) *SyncLog {
	return &SyncLog{pool: pool}
}

// Start records the beginning of a sync run and returns its ID.
func (s *SyncLog) Start(ctx context.Context, source string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sync_runs (source, status, started_at)
		 VALUES ($1, 'running', now()) RETURNING id`,
		source,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "synclog: start run for %s", source)
	}
	return id, nil
}

// Complete marks a run as finished with its counts.
func (s *SyncLog) Complete(ctx context.Context, runID int64, result models.SyncResult) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs
		 SET status = 'completed', completed_at = now(), added = $1, updated = $2, total = $3
		 WHERE id = $4`,
		result.Added, result.Updated, result.Total, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: complete run %d", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (s *SyncLog) Fail(ctx context.Context, runID int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: fail run %d", runID)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *SyncLog) Recent(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, started_at, completed_at, added, updated, total, COALESCE(error, '')
		 FROM sync_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "synclog: list runs")
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.Added, &r.Updated, &r.Total, &r.Error); err != nil {
			return nil, eris.Wrap(err, "synclog: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "synclog: list runs rows")
}
