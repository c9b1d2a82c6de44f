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

	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/summarizer"
)

// HistoryDB stores one row per completed run.
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

// Open opens or creates the history database inside dbDir.
// With CreateIfNotExists unset, a missing database yields ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, config.HistoryDBName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
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

// Path returns the database file location.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		file_count INTEGER NOT NULL DEFAULT 0,
		clean_errors INTEGER NOT NULL DEFAULT 0,
		risk_high INTEGER NOT NULL DEFAULT 0,
		risk_summary TEXT NOT NULL,
		analyses_codec TEXT NOT NULL,
		analyses BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_risk_high ON runs(risk_high);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run.
type RunRecord struct {
	ID          int64             `json:"-"`
	RunID       string            `json:"run_id"`
	InputDir    string            `json:"input_dir"`
	OutputDir   string            `json:"output_dir"`
	DryRun      bool              `json:"dry_run"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at,omitzero"`
	FileCount   int               `json:"file_count"`
	CleanErrors int               `json:"clean_errors"`
	Summary     model.RiskSummary `json:"summary"`

	// Analyses is only loaded by GetRun.
	Analyses []*model.FileAnalysis `json:"analyses,omitempty"`
}

// Stats rebuilds the ordered per-file analysis of the run.
func (r *RunRecord) Stats() *model.Stats {
	return model.NewStats(r.Analyses...)
}

// Duration returns the wall time of the run, or zero if it never finished.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun records run. Saving the same run ID again replaces the row.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) error {
	if run == nil {
		return ErrNilRun
	}

	summary := summarizer.Summarize(run.Stats)
	if run.Summary != nil {
		summary = *run.Summary
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize risk summary: %w", err)
	}

	analyses, err := encodeAnalyses(run.Stats.All())
	if err != nil {
		return err
	}

	var finishedAt sql.NullString
	if !run.FinishedAt.IsZero() {
		finishedAt = sql.NullString{String: formatTimestamp(run.FinishedAt), Valid: true}
	}

	query := `
	INSERT INTO runs (run_id, input_dir, output_dir, dry_run, started_at, finished_at,
		file_count, clean_errors, risk_high, risk_summary, analyses_codec, analyses)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		input_dir = excluded.input_dir,
		output_dir = excluded.output_dir,
		dry_run = excluded.dry_run,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		file_count = excluded.file_count,
		clean_errors = excluded.clean_errors,
		risk_high = excluded.risk_high,
		risk_summary = excluded.risk_summary,
		analyses_codec = excluded.analyses_codec,
		analyses = excluded.analyses
	`

	_, err = h.db.ExecContext(ctx, query,
		run.RunID,
		run.InputDir,
		run.OutputDir,
		run.DryRun,
		formatTimestamp(run.StartedAt),
		finishedAt,
		len(run.InputFiles),
		len(run.CleanErrors),
		summary.RiskHigh,
		string(summaryJSON),
		analysesCodec,
		analyses,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns every stored run, most recent first, without analyses.
func (h *HistoryDB) ListRuns(ctx context.Context) ([]RunRecord, error) {
	query := `
	SELECT id, run_id, input_dir, output_dir, dry_run, started_at, finished_at,
		file_count, clean_errors, risk_summary
	FROM runs
	ORDER BY started_at DESC, id DESC
	`

	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var record RunRecord
		if err := scanRun(rows, &record, nil); err != nil {
			return nil, err
		}
		results = append(results, record)
	}

	return results, rows.Err()
}

// GetRun returns the run with runID including its analyses.
// It returns ErrRunNotFound when no such run exists.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
	SELECT id, run_id, input_dir, output_dir, dry_run, started_at, finished_at,
		file_count, clean_errors, risk_summary, analyses
	FROM runs
	WHERE run_id = ?
	`

	var (
		record   RunRecord
		analyses []byte
	)
	err := scanRun(h.db.QueryRowContext(ctx, query, runID), &record, &analyses)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	record.Analyses, err = decodeAnalyses(analyses)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &record, nil
}

// CountRuns returns the number of stored runs.
func (h *HistoryDB) CountRuns(ctx context.Context) (int, error) {
	var count int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads the common run columns into record. When analyses is not
// nil, one more column holding the analyses blob is expected.
func scanRun(row rowScanner, record *RunRecord, analyses *[]byte) error {
	var (
		startedAt   string
		finishedAt  sql.NullString
		summaryJSON string
	)
	dest := []any{
		&record.ID,
		&record.RunID,
		&record.InputDir,
		&record.OutputDir,
		&record.DryRun,
		&startedAt,
		&finishedAt,
		&record.FileCount,
		&record.CleanErrors,
		&summaryJSON,
	}
	if analyses != nil {
		dest = append(dest, analyses)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan run: %w", err)
	}

	record.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		record.FinishedAt = parseTimestamp(finishedAt.String)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &record.Summary); err != nil {
		return fmt.Errorf("failed to parse risk summary of %s: %w", record.RunID, err)
	}
	return nil
}

// timestampLayout has a fixed-width fraction so that text ordering matches
// time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp renders t in UTC for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the formats parseTimestamp accepts.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp, returning the zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
