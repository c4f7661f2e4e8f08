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

	"github.com/nao1215/linkrot/internal/model"
)

// ErrRunNotFound is returned when the requested run ID does not exist
// in the history store.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for crawl run history.
// It manages the connection and provides methods for saving and
// querying past runs.
//
// Design decision: We use a single database file for all sites rather
// than one file per seed URL. This keeps run comparisons in one place
// and simplifies backup/restore operations.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "linkrot.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses query parameters on the path for open
	// flags. mode=rw refuses to create a new file, mode=rwc creates
	// one when missing.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one row per saved crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		seeds TEXT NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ms REAL NOT NULL,
		total INTEGER NOT NULL,
		broken INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);

	-- Links store one row per checked URL within a run
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		home TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		elapsed_ms REAL NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_links_run ON links(run_id);
	CREATE INDEX IF NOT EXISTS idx_links_status ON links(status_code);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport persists a completed crawl report and returns the run ID.
// The run is keyed by the first seed URL so later runs over the same
// site can be listed and compared.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	if report == nil || len(report.Seeds) == 0 {
		return 0, fmt.Errorf("cannot save report without seeds")
	}

	seedsJSON, err := json.Marshal(report.Seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (root, seeds, started_at, elapsed_ms, total, broken)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		report.Seeds[0],
		string(seedsJSON),
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.ElapsedMillis(),
		report.Total(),
		report.BrokenCount(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO links (run_id, url, home, status_code, elapsed_ms, error, error_kind)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close()

	for _, results := range [][]*model.FetchResult{report.Successes, report.Failures} {
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx,
				runID,
				r.Target.URL,
				r.Target.Home,
				r.StatusCode,
				r.ElapsedMillis(),
				r.ErrorMessage(),
				r.ErrorKind(),
			); err != nil {
				return 0, fmt.Errorf("failed to insert link %s: %w", r.Target.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunSummary contains summary information about a saved run.
// This is used for displaying run history without loading every link.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Root is the first seed URL of the run.
	Root string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// Total is the number of links checked.
	Total int

	// Broken is the number of links that failed.
	Broken int

	// ElapsedMS is the wall-clock duration of the run in milliseconds.
	ElapsedMS float64
}

// ListRuns returns the saved runs for a root seed URL, newest first.
func (hdb *HistoryDB) ListRuns(ctx context.Context, root string) ([]RunSummary, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, root, started_at, elapsed_ms, total, broken
	FROM runs
	WHERE root = ?
	ORDER BY id DESC
	`, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var run RunSummary
		var startedAt string

		if err := rows.Scan(&run.ID, &run.Root, &startedAt, &run.ElapsedMS, &run.Total, &run.Broken); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt = parseTimestamp(startedAt)
		results = append(results, run)
	}

	return results, rows.Err()
}

// ListRoots returns every root seed URL with at least one saved run.
func (hdb *HistoryDB) ListRoots(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT DISTINCT root FROM runs
	ORDER BY root
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		roots = append(roots, root)
	}

	return roots, rows.Err()
}

// GetRun rebuilds the full report for a saved run.
// Returns ErrRunNotFound when the ID does not exist.
//
// Successes keep their saved order, as do failures; the interleaving
// between the two lists is not preserved across a round trip.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.Report, error) {
	var seedsJSON, startedAt string
	var elapsedMS float64

	err := hdb.db.QueryRowContext(ctx, `
	SELECT seeds, started_at, elapsed_ms
	FROM runs
	WHERE id = ?
	`, id).Scan(&seedsJSON, &startedAt, &elapsedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var seeds []string
	if err := json.Unmarshal([]byte(seedsJSON), &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}

	report := model.NewReport(seeds)
	report.StartedAt = parseTimestamp(startedAt)
	report.Elapsed = time.Duration(elapsedMS * float64(time.Millisecond))

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT url, home, status_code, elapsed_ms, error, error_kind
	FROM links
	WHERE run_id = ?
	ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, home, errMsg, errKind string
		var statusCode int
		var linkElapsedMS float64

		if err := rows.Scan(&url, &home, &statusCode, &linkElapsedMS, &errMsg, &errKind); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}

		report.Add(&model.FetchResult{
			Target:     model.Target{Home: home, URL: url},
			StatusCode: statusCode,
			Elapsed:    time.Duration(linkElapsedMS * float64(time.Millisecond)),
			Err:        rebuildError(errKind, errMsg, statusCode),
		})
	}

	return report, rows.Err()
}

// rebuildError reconstructs a result error from its stored kind and
// message so ErrorKind and ErrorMessage round-trip through the store.
func rebuildError(kind, msg string, statusCode int) error {
	switch {
	case kind == "" && msg == "":
		return nil
	case kind == "ResponseError":
		return &model.ResponseError{StatusCode: statusCode}
	case kind == "TransportError":
		return &model.TransportError{Err: errors.New(msg)}
	default:
		return errors.New(msg)
	}
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // how SaveReport writes timestamps
	time.RFC3339,              // RFC3339 without fractional seconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
