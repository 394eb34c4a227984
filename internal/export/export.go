package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edp-labs/dataops/internal/blob"
	"github.com/edp-labs/dataops/internal/table"
)

// Result is the outcome of one export job. A failed job carries Err and
// never aborts the rest of the batch.
type Result struct {
	Job  string    `json:"job"`
	Key  string    `json:"key,omitempty"`
	Rows int       `json:"rows"`
	At   time.Time `json:"exported_at"`
	Err  string    `json:"error,omitempty"`
}

// Exporter executes manifest jobs against one database and writes each
// result set to the object store.
type Exporter struct {
	db     *sql.DB
	store  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Exporter over an open database handle.
func New(db *sql.DB, store blob.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{db: db, store: store, logger: logger, now: time.Now}
}

// OpenDB connects to postgres with the given credentials and verifies
// the connection.
func OpenDB(ctx context.Context, creds *Credentials) (*sql.DB, error) {
	db, err := sql.Open("pgx", creds.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Run executes every job in the manifest sequentially. Per-job failures
// are recorded in the result row; Run itself only fails on context
// cancellation.
func (e *Exporter) Run(ctx context.Context, m *Manifest) ([]Result, error) {
	results := make([]Result, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := e.runJob(ctx, m.Prefix, job)
		if res.Err != "" {
			e.logger.Warn("export job failed", "job", job.Name, "error", res.Err)
		} else {
			e.logger.Info("export job complete", "job", job.Name, "key", res.Key, "rows", res.Rows)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Exporter) runJob(ctx context.Context, prefix string, job Job) Result {
	now := e.now().UTC()
	res := Result{Job: job.Name, At: now}

	tbl, err := e.query(ctx, job.Query)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Rows = tbl.NumRows()

	data, err := tbl.MarshalCSV()
	if err != nil {
		res.Err = err.Error()
		return res
	}

	key := objectKey(prefix, job.Name, now)
	if _, err := e.store.Put(ctx, key, []byte(data), blob.PutOptions{ContentType: "text/csv"}); err != nil {
		res.Err = fmt.Sprintf("upload %s: %v", key, err)
		return res
	}
	res.Key = key
	return res
}

// query materializes a result set into a table. NULLs become empty
// cells; all values are rendered as text.
func (e *Exporter) query(ctx context.Context, q string) (*table.Table, error) {
	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	tbl := table.New(cols...)

	values := make([]sql.NullString, len(cols))
	scan := make([]any, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		if err := tbl.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return tbl, nil
}

// objectKey builds the timestamped destination key,
// e.g. exports/orders_20260115_093000.csv.
func objectKey(prefix, name string, at time.Time) string {
	file := fmt.Sprintf("%s_%s.csv", name, at.Format("20060102_150405"))
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}
