package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"page-scraper/models"

	"github.com/rotisserie/eris"
)

// Run represents one stored scrape session
type Run struct {
	ID          int64
	Site        string
	StopReason  string // "empty_page", "page_budget", "cancelled"
	Pages       int
	Fetches     int
	RecordCount int
	ErrorCount  int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// StoredRecord is one record row; Data holds the record as a JSON object
type StoredRecord struct {
	ID       int64
	RunID    int64
	Position int
	Data     string
}

// Record decodes the stored JSON back into a record with its field order
func (r StoredRecord) Record() (models.Record, error) {
	var record models.Record
	if err := json.Unmarshal([]byte(r.Data), &record); err != nil {
		return nil, eris.Wrapf(err, "db: decode record %d", r.ID)
	}
	return record, nil
}

// SaveSession stores the run and all its records in one transaction
func (db *DB) SaveSession(ctx context.Context, session *models.Session) (*Run, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "db: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	run := &Run{
		Site:        session.Site,
		StopReason:  string(session.StopReason),
		Pages:       session.Pages,
		Fetches:     session.Fetches,
		RecordCount: session.Len(),
		ErrorCount:  len(session.Errors),
		StartedAt:   session.StartedAt.UTC(),
		FinishedAt:  session.FinishedAt.UTC(),
	}

	err = tx.QueryRowContext(ctx, db.rebind(`
		INSERT INTO scrape_runs (site, stop_reason, pages, fetches, record_count, error_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), run.Site, run.StopReason, run.Pages, run.Fetches, run.RecordCount, run.ErrorCount, run.StartedAt, run.FinishedAt).Scan(&run.ID)
	if err != nil {
		return nil, eris.Wrap(err, "db: insert run")
	}

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO scrape_records (run_id, position, data) VALUES (?, ?, ?)
	`))
	if err != nil {
		return nil, eris.Wrap(err, "db: prepare record insert")
	}
	defer stmt.Close()

	for i, record := range session.Records {
		data, err := json.Marshal(record)
		if err != nil {
			return nil, eris.Wrapf(err, "db: marshal record %d", i)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, string(data)); err != nil {
			return nil, eris.Wrapf(err, "db: insert record %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "db: commit")
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, site, stop_reason, pages, fetches, record_count, error_count, started_at, finished_at
		FROM scrape_runs WHERE id = ?
	`), id).Scan(
		&run.ID, &run.Site, &run.StopReason, &run.Pages, &run.Fetches,
		&run.RecordCount, &run.ErrorCount, &run.StartedAt, &run.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("db: run %d not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "db: get run %d", id)
	}
	return &run, nil
}

// ListRuns returns the latest runs for a site, newest first
func (db *DB) ListRuns(ctx context.Context, site string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, site, stop_reason, pages, fetches, record_count, error_count, started_at, finished_at
		FROM scrape_runs WHERE site = ?
		ORDER BY id DESC
		LIMIT ?
	`), site, limit)
	if err != nil {
		return nil, eris.Wrap(err, "db: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Site, &run.StopReason, &run.Pages, &run.Fetches,
			&run.RecordCount, &run.ErrorCount, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, eris.Wrap(err, "db: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "db: iterate runs")
}

// GetRecords returns the records of a run in their original order
func (db *DB) GetRecords(ctx context.Context, runID int64) ([]StoredRecord, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT id, run_id, position, data FROM scrape_records
		WHERE run_id = ?
		ORDER BY position
	`), runID)
	if err != nil {
		return nil, eris.Wrapf(err, "db: get records for run %d", runID)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Position, &r.Data); err != nil {
			return nil, eris.Wrap(err, "db: scan record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "db: iterate records")
}
