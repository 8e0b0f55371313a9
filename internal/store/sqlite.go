package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements Store on a local SQLite database. Writes are
// synchronous: a gate run inserts exactly one row before exiting.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database and applies the schema.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveRun records one completed gate run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	passed := 0
	if run.Passed {
		passed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, pr_number, pr_title, base, head, passed, failure_count, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.PRNumber,
		run.PRTitle,
		run.Base,
		run.Head,
		passed,
		run.FailureCount,
		run.ReportJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.logger.Debug("run recorded", "id", run.ID, "pr", run.PRNumber, "passed", run.Passed)
	return nil
}

// RecentRuns retrieves the most recent runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, pr_number, pr_title, base, head, passed, failure_count, report_json
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		var passed int
		if err := rows.Scan(&r.ID, &ts, &r.PRNumber, &r.PRTitle, &r.Base, &r.Head, &passed, &r.FailureCount, &r.ReportJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		r.Passed = passed != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
