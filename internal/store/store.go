// Package store persists gate-run history to a local SQLite database.
package store

import (
	"context"
	"time"
)

// Run is one recorded gate run.
type Run struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	PRNumber     int       `json:"pr_number"`
	PRTitle      string    `json:"pr_title"`
	Base         string    `json:"base"`
	Head         string    `json:"head"`
	Passed       bool      `json:"passed"`
	FailureCount int       `json:"failure_count"`
	ReportJSON   string    `json:"report_json"`
}

// Store is the persistence interface for run history.
type Store interface {
	// SaveRun records one completed gate run.
	SaveRun(ctx context.Context, run *Run) error

	// RecentRuns retrieves the most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)

	// Close closes the store.
	Close() error
}
