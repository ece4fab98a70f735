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

	"github.com/nao1215/k8crawler/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "k8crawler.db"

// timeLayout stores timestamps in UTC with a fixed width so that string
// comparison in SQL orders them correctly.
const timeLayout = "2006-01-02 15:04:05.000000"

// CrawlDB is the SQLite store of records, pages, dead letters and runs.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the CrawlDB inside dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; workers share one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Ping checks that the database is reachable.
func (cdb *CrawlDB) Ping(ctx context.Context) error {
	return cdb.db.PingContext(ctx)
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		fingerprint TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		source_site TEXT,
		name TEXT,
		category TEXT,
		cost_range TEXT,
		record_json TEXT NOT NULL,
		run_id TEXT,
		scraped_at TEXT NOT NULL,
		written_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_url ON records(source_url);
	CREATE INDEX IF NOT EXISTS idx_records_category ON records(category);

	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_fetched ON pages(fetched_at);

	CREATE TABLE IF NOT EXISTS dead_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		fingerprint TEXT NOT NULL,
		source_url TEXT NOT NULL,
		record_json TEXT NOT NULL,
		error TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dead_letters_run ON dead_letters(run_id);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		config_path TEXT,
		seeds INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		error TEXT,
		stats_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// UpsertRecord stores rec under its fingerprint. Writing the same
// fingerprint again replaces the row, so repeated writes are idempotent.
func (cdb *CrawlDB) UpsertRecord(ctx context.Context, rec *model.CandidateRecord, runID string) error {
	if rec.Fingerprint == "" {
		return errors.New("record has no fingerprint")
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	query := `
	INSERT INTO records (fingerprint, source_url, source_site, name, category, cost_range, record_json, run_id, scraped_at, written_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		source_url = excluded.source_url,
		source_site = excluded.source_site,
		name = excluded.name,
		category = excluded.category,
		cost_range = excluded.cost_range,
		record_json = excluded.record_json,
		run_id = excluded.run_id,
		scraped_at = excluded.scraped_at,
		written_at = excluded.written_at
	`

	_, err = cdb.db.ExecContext(ctx, query,
		rec.Fingerprint.String(),
		rec.SourceURL,
		rec.SourceSite,
		rec.Name,
		string(rec.Category),
		string(rec.CostRange),
		string(recordJSON),
		runID,
		formatTime(rec.ScrapedAt),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// GetRecord returns the record stored under fp, or nil if there is none.
func (cdb *CrawlDB) GetRecord(ctx context.Context, fp model.Fingerprint) (*model.CandidateRecord, error) {
	var recordJSON string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT record_json FROM records WHERE fingerprint = ?`, fp.String(),
	).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec model.CandidateRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

// CountRecords returns the number of stored records.
func (cdb *CrawlDB) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// CategoryCounts returns the number of stored records per category.
func (cdb *CrawlDB) CategoryCounts(ctx context.Context) (map[model.Category]int64, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM records GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Category]int64)
	for rows.Next() {
		var category sql.NullString
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[model.Category(category.String)] = n
	}
	return counts, rows.Err()
}

// RecordFingerprints returns the fingerprint of every stored record.
func (cdb *CrawlDB) RecordFingerprints(ctx context.Context) ([]model.Fingerprint, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT fingerprint FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []model.Fingerprint
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fps = append(fps, model.Fingerprint(fp))
	}
	return fps, rows.Err()
}

// MarkPage records that a page was fetched at fetchedAt.
func (cdb *CrawlDB) MarkPage(ctx context.Context, normalizedURL string, fetchedAt time.Time) error {
	query := `
	INSERT INTO pages (url, fetched_at) VALUES (?, ?)
	ON CONFLICT(url) DO UPDATE SET fetched_at = excluded.fetched_at
	`
	if _, err := cdb.db.ExecContext(ctx, query, normalizedURL, formatTime(fetchedAt)); err != nil {
		return fmt.Errorf("failed to mark page: %w", err)
	}
	return nil
}

// SeenPages returns the pages fetched at or after since.
func (cdb *CrawlDB) SeenPages(ctx context.Context, since time.Time) (map[string]time.Time, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT url, fetched_at FROM pages WHERE fetched_at >= ?`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make(map[string]time.Time)
	for rows.Next() {
		var u, fetchedAt string
		if err := rows.Scan(&u, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages[u] = parseTimestamp(fetchedAt)
	}
	return pages, rows.Err()
}

// InsertDeadLetter stores a record that could not be written.
func (cdb *CrawlDB) InsertDeadLetter(ctx context.Context, dl *model.DeadLetter) error {
	recordJSON, err := json.Marshal(dl.Record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	createdAt := dl.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
	INSERT INTO dead_letters (run_id, fingerprint, source_url, record_json, error, attempts, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = cdb.db.ExecContext(ctx, query,
		dl.RunID,
		dl.Record.Fingerprint.String(),
		dl.Record.SourceURL,
		string(recordJSON),
		dl.Error,
		dl.Attempts,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns the dead letters of a run, oldest first.
// An empty runID lists all of them.
func (cdb *CrawlDB) ListDeadLetters(ctx context.Context, runID string) ([]model.DeadLetter, error) {
	query := `SELECT run_id, record_json, error, attempts, created_at FROM dead_letters`
	args := make([]any, 0, 1)
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var out []model.DeadLetter
	for rows.Next() {
		var dl model.DeadLetter
		var rid sql.NullString
		var recordJSON, createdAt string
		if err := rows.Scan(&rid, &recordJSON, &dl.Error, &dl.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		if err := json.Unmarshal([]byte(recordJSON), &dl.Record); err != nil {
			continue // skip malformed rows
		}
		dl.RunID = rid.String
		dl.CreatedAt = parseTimestamp(createdAt)
		out = append(out, dl)
	}
	return out, rows.Err()
}

// SaveRun inserts or updates a run summary.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.RunSummary) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to serialize run stats: %w", err)
	}

	var finishedAt sql.NullString
	if !run.FinishedAt.IsZero() {
		finishedAt = sql.NullString{String: formatTime(run.FinishedAt), Valid: true}
	}

	query := `
	INSERT INTO runs (id, state, config_path, seeds, started_at, finished_at, error, stats_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		finished_at = excluded.finished_at,
		error = excluded.error,
		stats_json = excluded.stats_json
	`
	_, err = cdb.db.ExecContext(ctx, query,
		run.ID,
		string(run.State),
		run.ConfigPath,
		run.Seeds,
		formatTime(run.StartedAt),
		finishedAt,
		run.Error,
		string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id, or nil if there is none.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	query := runColumns + ` ORDER BY started_at DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const runColumns = `SELECT id, state, config_path, seeds, started_at, finished_at, error, stats_json FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var run model.RunSummary
	var state, startedAt string
	var configPath, finishedAt, runErr, statsJSON sql.NullString

	if err := row.Scan(&run.ID, &state, &configPath, &run.Seeds, &startedAt, &finishedAt, &runErr, &statsJSON); err != nil {
		return nil, err
	}

	run.State = model.RunState(state)
	run.ConfigPath = configPath.String
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Error = runErr.String
	if statsJSON.Valid && statsJSON.String != "" {
		// A corrupt stats column leaves the counters at zero.
		_ = json.Unmarshal([]byte(statsJSON.String), &run.Stats)
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp as UTC. It returns the zero time
// when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
