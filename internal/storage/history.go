package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// startedAtLayout is fixed width so the stored text sorts in time order.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is the run history ledger.
type DB struct {
	conn *sql.DB
}

// Run is one processed file.
type Run struct {
	ID         int64
	TraceID    string
	InputFile  string
	OutputFile string
	Profile    string
	Success    bool
	Error      string
	Counts     map[string]int
	Duration   time.Duration
	StartedAt  time.Time
}

// Open opens (and creates if needed) the ledger at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; concurrent converters queue here.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  inputFile TEXT NOT NULL,
  outputFile TEXT,
  profile TEXT,
  success INTEGER NOT NULL,
  error TEXT,
  countsJson TEXT NOT NULL,
  durationMs INTEGER NOT NULL,
  startedAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_startedAt ON runs(startedAt);
`
	_, err := d.conn.Exec(schema)
	return err
}

// RecordRun stores r. A missing TraceID is generated and a zero StartedAt
// becomes now. The stored run is returned with its ID set.
func (d *DB) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.TraceID == "" {
		r.TraceID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	countsJSON, err := json.Marshal(r.Counts)
	if err != nil {
		return r, err
	}

	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO runs (traceId, inputFile, outputFile, profile, success, error, countsJson, durationMs, startedAt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TraceID, r.InputFile, r.OutputFile, r.Profile, boolToInt(r.Success), r.Error,
		string(countsJSON), r.Duration.Milliseconds(), r.StartedAt.UTC().Format(startedAtLayout))
	if err != nil {
		return r, fmt.Errorf("insert run: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return r, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, traceId, inputFile, COALESCE(outputFile, ''), COALESCE(profile, ''), success,
		        COALESCE(error, ''), countsJson, durationMs, startedAt
		 FROM runs ORDER BY startedAt DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var (
			r          Run
			success    int
			countsJSON string
			durationMs int64
			startedAt  string
		)
		if err := rows.Scan(&r.ID, &r.TraceID, &r.InputFile, &r.OutputFile, &r.Profile, &success,
			&r.Error, &countsJSON, &durationMs, &startedAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
			return nil, fmt.Errorf("run %d: counts: %w", r.ID, err)
		}
		if r.StartedAt, err = time.Parse(startedAtLayout, startedAt); err != nil {
			return nil, fmt.Errorf("run %d: startedAt: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
