package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (and migrates) the audit database. Use ":memory:" for an
// in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSave appends a save event, assigning ID and CreatedAt when unset.
func (s *SQLiteStore) RecordSave(ev *SaveEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO save_events (id, dataset, user, added, deleted, modified, object_key, etag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Dataset, ev.User, ev.Added, ev.Deleted, ev.Modified, ev.ObjectKey, ev.ETag, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record save event: %w", err)
	}
	return nil
}

// ListSaves returns save events newest first, optionally filtered by
// dataset. limit <= 0 means no limit.
func (s *SQLiteStore) ListSaves(dataset string, limit int) ([]*SaveEvent, error) {
	query := `SELECT id, dataset, user, added, deleted, modified, object_key, etag, created_at
	          FROM save_events`
	var args []any
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list save events: %w", err)
	}
	defer rows.Close()

	var events []*SaveEvent
	for rows.Next() {
		ev := &SaveEvent{}
		if err := rows.Scan(&ev.ID, &ev.Dataset, &ev.User, &ev.Added, &ev.Deleted,
			&ev.Modified, &ev.ObjectKey, &ev.ETag, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan save event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordReportRun appends a cost report run record.
func (s *SQLiteStore) RecordReportRun(run *ReportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO report_runs (id, jobs, failed_jobs, total_cost, window_start, window_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Jobs, run.FailedJobs, run.TotalCost, run.WindowStart, run.WindowEnd, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record report run: %w", err)
	}
	return nil
}

// ListReportRuns returns report runs newest first. limit <= 0 means no
// limit.
func (s *SQLiteStore) ListReportRuns(limit int) ([]*ReportRun, error) {
	query := `SELECT id, jobs, failed_jobs, total_cost, window_start, window_end, created_at
	          FROM report_runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list report runs: %w", err)
	}
	defer rows.Close()

	var runs []*ReportRun
	for rows.Next() {
		run := &ReportRun{}
		if err := rows.Scan(&run.ID, &run.Jobs, &run.FailedJobs, &run.TotalCost,
			&run.WindowStart, &run.WindowEnd, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
