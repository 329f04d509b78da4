// Package datasource provides read-only access to the externally-persisted
// planning stores: the completion log and the rate-limit table. Collaborators
// own these stores and write them; the planner only ever reads a snapshot.
package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/planwork/pkg/model"
)

// ErrSourceMissing reports that the store file does not exist. Callers treat
// this as "no data yet", not a failure.
var ErrSourceMissing = errors.New("datasource: store missing")

// RowError reports a row that could not be decoded. The surrounding read
// keeps going; the caller decides whether partial data is acceptable.
type RowError struct {
	Table string
	Key   string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("datasource: %s row %q: %v", e.Table, e.Key, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Reader is a read-only handle on one SQLite store.
type Reader struct {
	db   *sql.DB
	path string
}

// Open opens the store read-only. A missing file returns ErrSourceMissing;
// sql.Open would otherwise create an empty database.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("datasource: stat %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", path, err)
	}
	return &Reader{db: db, path: path}, nil
}

// Close closes the handle.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the store path this reader was opened on.
func (r *Reader) Path() string { return r.path }

// Completions reads the full completion log, oldest first. Undecodable rows
// are collected as RowErrors in warns; the rows that do decode are still
// returned.
func (r *Reader) Completions() (records []model.CompletionRecord, warns []error, err error) {
	rows, err := r.db.Query(`
		SELECT task_id, estimated_hours, actual_hours, solver, success, completed_at, notes
		FROM completions
		ORDER BY completed_at
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("datasource: query completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.CompletionRecord
		var success int
		var completedAt sql.NullString
		var notes sql.NullString
		if err := rows.Scan(&rec.TaskID, &rec.EstimatedHours, &rec.ActualHours, &rec.Solver, &success, &completedAt, &notes); err != nil {
			warns = append(warns, &RowError{Table: "completions", Key: rec.TaskID, Err: err})
			continue
		}
		rec.Success = success != 0
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				warns = append(warns, &RowError{Table: "completions", Key: rec.TaskID, Err: err})
				continue
			}
			rec.CompletedAt = t
		}
		if notes.Valid {
			rec.Notes = notes.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, warns, fmt.Errorf("datasource: iterate completions: %w", err)
	}
	return records, warns, nil
}

// RateLimits reads the current rate-limit records from the key/value table.
// Keys follow ratelimit:current:<model>:<account>; values are JSON records.
// Undecodable rows become RowErrors in warns.
func (r *Reader) RateLimits() (records []model.RateLimitRecord, warns []error, err error) {
	rows, err := r.db.Query(`
		SELECT key, value FROM ratelimit_current WHERE key LIKE 'ratelimit:current:%'
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("datasource: query ratelimit_current: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			warns = append(warns, &RowError{Table: "ratelimit_current", Key: key, Err: err})
			continue
		}
		var rec model.RateLimitRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			warns = append(warns, &RowError{Table: "ratelimit_current", Key: key, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, warns, fmt.Errorf("datasource: iterate ratelimit_current: %w", err)
	}
	return records, warns, nil
}

// Completions is the one-shot form of Reader.Completions.
func Completions(path string) ([]model.CompletionRecord, []error, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	return r.Completions()
}

// RateLimits is the one-shot form of Reader.RateLimits.
func RateLimits(path string) ([]model.RateLimitRecord, []error, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	return r.RateLimits()
}
