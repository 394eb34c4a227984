// Package state keeps a local audit trail of dataset saves and cost
// report runs in SQLite.
package state

import "time"

// SaveEvent records one committed dataset save.
type SaveEvent struct {
	ID        string
	Dataset   string
	User      string
	Added     int
	Deleted   int
	Modified  int
	ObjectKey string
	ETag      string
	CreatedAt time.Time
}

// ReportRun records one cost report execution.
type ReportRun struct {
	ID          string
	Jobs        int
	FailedJobs  int
	TotalCost   float64
	WindowStart time.Time
	WindowEnd   time.Time
	CreatedAt   time.Time
}

// Store is the audit log interface.
type Store interface {
	RecordSave(ev *SaveEvent) error
	ListSaves(dataset string, limit int) ([]*SaveEvent, error)
	RecordReportRun(run *ReportRun) error
	ListReportRuns(limit int) ([]*ReportRun, error)
	Close() error
}
