package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/bilicrawl/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "bilicrawl.db"

// CrawlDB stores crawl runs and their records.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// wrapping ErrNotFound is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout lets a second process (or a concurrent history command)
	// wait for the write lock instead of failing with SQLITE_BUSY.
	pragmas := "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	dsn := dbPath + "?mode=rw" + pragmas
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// ErrNotFound is returned by Open when the database file is missing and
// creation was not requested.
var ErrNotFound = errors.New("history database not found")

// ErrRunNotFinished is returned by SaveRun for a crawl that is still running.
var ErrRunNotFinished = errors.New("crawl run has not finished")

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl of one keyword
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		stop_reason TEXT NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		items_seen INTEGER NOT NULL DEFAULT 0,
		record_count INTEGER NOT NULL DEFAULT 0,
		api_code INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_keyword ON crawl_runs(keyword);

	-- Records kept by a run, in export order
	CREATE TABLE IF NOT EXISTS run_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		dedupe_key TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		record_json TEXT NOT NULL,
		UNIQUE(run_id, dedupe_key)
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON run_records(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the stored summary of one crawl.
type Run struct {
	ID           int64            `json:"id"`
	Keyword      string           `json:"keyword"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	StopReason   model.StopReason `json:"stop_reason"`
	PagesFetched int              `json:"pages_fetched"`
	ItemsSeen    int              `json:"items_seen"`
	RecordCount  int              `json:"record_count"`
	APICode      int              `json:"api_code"`
	Error        string           `json:"error,omitempty"`
}

// SaveRun stores result and its records in one transaction and returns
// the new run ID. Only finished crawls are stored.
func (cdb *CrawlDB) SaveRun(ctx context.Context, result *model.CrawlResult) (id int64, err error) {
	if !result.StopReason.IsTerminal() {
		return 0, fmt.Errorf("%w: %q", ErrRunNotFinished, result.Keyword)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (keyword, started_at, finished_at, stop_reason, pages_fetched, items_seen, record_count, api_code, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Keyword,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.StopReason.String(),
		result.PagesFetched,
		result.ItemsSeen,
		len(result.Records),
		result.APICode,
		result.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_records (run_id, position, dedupe_key, fingerprint, record_json)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, dedupe_key) DO UPDATE SET
		fingerprint = excluded.fingerprint,
		record_json = excluded.record_json
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Records {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize record %s: %w", r.DedupeKey(), err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.DedupeKey(), r.Fingerprint(), string(data)); err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", r.DedupeKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, keyword, started_at, finished_at, stop_reason, pages_fetched, items_seen, record_count, api_code, error`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started, finished, reason string
	if err := s.Scan(
		&run.ID,
		&run.Keyword,
		&started,
		&finished,
		&reason,
		&run.PagesFetched,
		&run.ItemsSeen,
		&run.RecordCount,
		&run.APICode,
		&run.Error,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	run.StopReason = model.ParseStopReason(reason)
	return &run, nil
}

// ListRuns returns the runs for keyword, newest first. An empty keyword
// lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, keyword string) ([]*Run, error) {
	return cdb.queryRuns(ctx, keyword, -1)
}

// LatestRuns returns at most n runs for keyword, newest first.
func (cdb *CrawlDB) LatestRuns(ctx context.Context, keyword string, n int) ([]*Run, error) {
	if n <= 0 {
		return []*Run{}, nil
	}
	return cdb.queryRuns(ctx, keyword, n)
}

func (cdb *CrawlDB) queryRuns(ctx context.Context, keyword string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs WHERE 1=1`
	args := make([]any, 0, 2)

	if keyword != "" {
		query += " AND keyword = ?"
		args = append(args, keyword)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with id, or nil if there is none.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRunRecords returns the records of run id in their original order.
func (cdb *CrawlDB) GetRunRecords(ctx context.Context, id int64) ([]model.SearchRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT record_json FROM run_records
	WHERE run_id = ?
	ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run records: %w", err)
	}
	defer rows.Close()

	records := make([]model.SearchRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var r model.SearchRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// ListKeywords returns every keyword with at least one run.
func (cdb *CrawlDB) ListKeywords(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT keyword FROM crawl_runs ORDER BY keyword`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	keywords := make([]string, 0)
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}

	return keywords, rows.Err()
}

// DeleteRun removes a run and its records. Deleting a missing run is not
// an error.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM crawl_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// formatTimestamp stores times in UTC so text ordering matches time order.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats accepted when reading.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with the first matching format, or returns the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
