package store

import (
	"context"
	"database/sql"
	"time"

	"internwatch/internal/poll"
)

// Migrate creates the run journal schema. It only records run outcomes and
// per-source counts; listings themselves are never stored.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  total INTEGER NOT NULL DEFAULT 0,
  found INTEGER NOT NULL DEFAULT 0,
  delivered INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_sources (
  run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  source TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 0,
  tier TEXT NOT NULL DEFAULT '',
  error_kind TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, position)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_runs_started_at
ON runs(started_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// RecordRun stores one finished run. Satisfies poll.Journal.
func (d *DB) RecordRun(ctx context.Context, o poll.Outcome) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO runs(started_at, finished_at, total, found, delivered, status, error)
VALUES(?,?,?,?,?,?,?);`,
		o.StartedAt.UTC().Format(time.RFC3339),
		o.FinishedAt.UTC().Format(time.RFC3339),
		len(o.Listings),
		boolInt(o.Found),
		boolInt(o.Delivered),
		o.Status(),
		errText,
	)
	if err != nil {
		return err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, s := range o.Sources {
		srcErr := ""
		if s.Err != nil {
			srcErr = s.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_sources(run_id, position, source, count, tier, error_kind, error)
VALUES(?,?,?,?,?,?,?);`,
			runID, i, string(s.Source), s.Count, string(s.Tier), s.ErrKind, srcErr,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type Run struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Found      bool      `json:"found"`
	Delivered  bool      `json:"delivered"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
}

type RunSource struct {
	Source    string `json:"source"`
	Count     int    `json:"count"`
	Tier      string `json:"tier"`
	ErrorKind string `json:"error_kind"`
	Error     string `json:"error"`
}

// RecentRuns returns the latest runs, newest first.
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, started_at, finished_at, total, found, delivered, status, error
FROM runs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var found, delivered int
		if err := rows.Scan(&r.ID, &started, &finished, &r.Total, &found, &delivered, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		r.Found = found != 0
		r.Delivered = delivered != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSources returns the per-source rows of one run in pipeline order.
func (d *DB) RunSources(ctx context.Context, runID int64) ([]RunSource, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT source, count, tier, error_kind, error
FROM run_sources
WHERE run_id = ?
ORDER BY position;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSource
	for rows.Next() {
		var s RunSource
		if err := rows.Scan(&s.Source, &s.Count, &s.Tier, &s.ErrorKind, &s.Error); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
