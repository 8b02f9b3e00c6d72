package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	variant TEXT NOT NULL,
	range_start DATETIME NOT NULL,
	range_end DATETIME NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	accounts INTEGER NOT NULL,
	failed_accounts INTEGER NOT NULL,
	row_count INTEGER NOT NULL,
	error_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS report_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	account TEXT NOT NULL,
	record_id INTEGER NOT NULL,
	reference TEXT,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS processing_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	account TEXT NOT NULL,
	record_id INTEGER NOT NULL,
	reference TEXT,
	error_message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rows_run ON report_rows(run_id);
CREATE INDEX IF NOT EXISTS idx_errors_run ON processing_errors(run_id);
`

// Run summarises one report run.
type Run struct {
	ID             string
	Variant        string
	Range          report.DateRange
	StartedAt      time.Time
	FinishedAt     time.Time
	Accounts       int
	FailedAccounts int
	Rows           int
	Errors         int
}

// Store keeps report runs in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and applies the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run with its rows and errors in one transaction and
// returns the run with its generated ID.
func (s *Store) SaveRun(ctx context.Context, run Run, v report.Variant, rows []report.OutputRow, errs []report.ProcessingError) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Variant = v.Name
	run.Rows = len(rows)
	run.Errors = len(errs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, variant, range_start, range_end, started_at, finished_at, accounts, failed_accounts, row_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Variant, run.Range.Start, run.Range.End, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Accounts, run.FailedAccounts, run.Rows, run.Errors)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO report_rows (run_id, account, record_id, reference, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare rows: %w", err)
	}
	defer rowStmt.Close()

	headers := v.Headers()
	for i := range rows {
		values := rows[i].Values(v.Columns)
		data := make(map[string]string, len(values))
		for j, h := range headers {
			data[h] = values[j]
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return Run{}, fmt.Errorf("marshal row: %w", err)
		}
		if _, err := rowStmt.ExecContext(ctx, run.ID, rows[i].Account, rows[i].RecordID, rows[i].Reference, string(payload)); err != nil {
			return Run{}, fmt.Errorf("insert row: %w", err)
		}
	}

	for _, e := range errs {
		_, err := tx.ExecContext(ctx, `INSERT INTO processing_errors (run_id, account, record_id, reference, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, e.Account, e.RecordID, e.Reference, e.Err, e.Timestamp.UTC())
		if err != nil {
			return Run{}, fmt.Errorf("insert error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, variant, range_start, range_end, started_at, finished_at,
		accounts, failed_accounts, row_count, error_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Variant, &r.Range.Start, &r.Range.End, &r.StartedAt, &r.FinishedAt,
			&r.Accounts, &r.FailedAccounts, &r.Rows, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RowData returns the stored column values of a run's rows in insertion
// order.
func (s *Store) RowData(ctx context.Context, runID string) ([]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM report_rows WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var data map[string]string
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, data)
	}
	return out, rows.Err()
}
