// Package sqlite implements storage.Storer on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/storage"
)

// DefaultListLimit caps ListRuns when the caller passes no limit.
const DefaultListLimit = 20

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the storage.Storer interface for SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Storer = (*Store)(nil)

// New opens (or creates) the database at path and runs migrations.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	source        TEXT NOT NULL,
	config        TEXT NOT NULL,
	total         INTEGER NOT NULL,
	alive         INTEGER NOT NULL,
	redirects     INTEGER NOT NULL,
	client_errors INTEGER NOT NULL,
	server_errors INTEGER NOT NULL,
	errors        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);

CREATE TABLE IF NOT EXISTS results (
	run_id         TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	url            TEXT NOT NULL,
	status_code    INTEGER NOT NULL,
	title          TEXT NOT NULL,
	banner         TEXT NOT NULL,
	content_length INTEGER NOT NULL,
	redirect_url   TEXT NOT NULL,
	error          TEXT,
	PRIMARY KEY (run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores the run and its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
INSERT INTO runs (id, started_at, finished_at, source, config, total, alive, redirects, client_errors, server_errors, errors)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sum := run.Summary
	if _, err := tx.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Source,
		string(cfg),
		sum.Total, sum.Alive, sum.Redirects, sum.ClientErrors, sum.ServerErrors, sum.Errors,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO results (run_id, seq, url, status_code, title, banner, content_length, redirect_url, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range run.Results {
		var errText sql.NullString
		if r.Error != "" {
			errText = sql.NullString{String: r.Error, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, r.OriginalURL, r.StatusCode, r.Title, r.Banner, r.ContentLength, r.RedirectURL, errText,
		); err != nil {
			return fmt.Errorf("failed to insert result %q: %w", r.OriginalURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, source, config, total, alive, redirects, client_errors, server_errors, errors`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (storage.Run, error) {
	var (
		r                     storage.Run
		startedAt, finishedAt string
		cfg                   string
	)
	if err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Source, &cfg,
		&r.Summary.Total, &r.Summary.Alive, &r.Summary.Redirects,
		&r.Summary.ClientErrors, &r.Summary.ServerErrors, &r.Summary.Errors,
	); err != nil {
		return storage.Run{}, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return storage.Run{}, fmt.Errorf("decoding start time of run %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return storage.Run{}, fmt.Errorf("decoding finish time of run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return storage.Run{}, fmt.Errorf("decoding config of run %s: %w", r.ID, err)
	}
	return r, nil
}

// GetRun retrieves a single run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (storage.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Run{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the newest runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []storage.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the stored results of runID in check order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]checker.Result, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `
SELECT url, status_code, title, banner, content_length, redirect_url, error
FROM results
WHERE run_id = ?
ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []checker.Result{}
	for rows.Next() {
		var (
			r       checker.Result
			errText sql.NullString
		)
		if err := rows.Scan(&r.OriginalURL, &r.StatusCode, &r.Title, &r.Banner,
			&r.ContentLength, &r.RedirectURL, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Error = errText.String
		results = append(results, r)
	}
	return results, rows.Err()
}
