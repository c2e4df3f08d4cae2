// Package ledger keeps a SQLite record of scraping runs and the books
// each run touched. It is observational: resume behavior is driven by
// the dump store and on-disk artifacts, not by this database, so ledger
// failures are reported but never abort a run.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Book statuses recorded per processed book.
const (
	StatusScraped = "scraped"
	StatusCached  = "cached"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Ledger manages the runs and books tables.
type Ledger struct {
	db *sql.DB
}

// Run describes one invocation of the scraper.
type Run struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
}

// BookRecord describes one book processed during a run.
type BookRecord struct {
	URL         string
	Slug        string
	Category    string
	Status      string
	RunID       uuid.UUID
	ProcessedAt time.Time
}

// Open opens (creating if necessary) the ledger database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		processed INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS books (
		url TEXT NOT NULL,
		slug TEXT,
		category TEXT,
		status TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		processed_at TEXT NOT NULL
	);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// BeginRun inserts a new run row and returns its ID.
func (l *Ledger) BeginRun() (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now()

	_, err := l.db.Exec(
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		id.String(), now.Format(time.RFC3339),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's end time and processed count.
func (l *Ledger) FinishRun(runID uuid.UUID, processed int) error {
	now := time.Now()

	res, err := l.db.Exec(
		"UPDATE runs SET finished_at = ?, processed = ? WHERE run_id = ?",
		now.Format(time.RFC3339), processed, runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found")
	}
	return nil
}

// RecordBook appends one processed-book row for the given run.
func (l *Ledger) RecordBook(runID uuid.UUID, url, slug, category, status string) error {
	now := time.Now()

	_, err := l.db.Exec(
		"INSERT INTO books (url, slug, category, status, run_id, processed_at) VALUES (?, ?, ?, ?, ?, ?)",
		url, slug, category, status, runID.String(), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert book record: %w", err)
	}
	return nil
}

// Run retrieves a single run row.
func (l *Ledger) Run(runID uuid.UUID) (*Run, error) {
	var run Run
	var startedAtStr string
	var finishedAtStr sql.NullString

	err := l.db.QueryRow(
		"SELECT run_id, started_at, finished_at, processed FROM runs WHERE run_id = ?",
		runID.String(),
	).Scan(new(string), &startedAtStr, &finishedAtStr, &run.Processed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.RunID = runID
	run.StartedAt = parseTime(startedAtStr)
	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// BooksForRun lists the book rows recorded for a run, oldest first.
func (l *Ledger) BooksForRun(runID uuid.UUID) ([]BookRecord, error) {
	rows, err := l.db.Query(
		"SELECT url, slug, category, status, processed_at FROM books WHERE run_id = ? ORDER BY processed_at",
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query book records: %w", err)
	}
	defer rows.Close()

	var records []BookRecord
	for rows.Next() {
		var rec BookRecord
		var processedAtStr string
		if err := rows.Scan(&rec.URL, &rec.Slug, &rec.Category, &rec.Status, &processedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan book record: %w", err)
		}
		rec.RunID = runID
		rec.ProcessedAt = parseTime(processedAtStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
