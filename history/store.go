// Package history persists run summaries in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	stageflow "github.com/simon020286/go-stageflow"
)

// ErrNotFound is returned by Get for unknown run IDs
var ErrNotFound = errors.New("run not found")

// DefaultLimit bounds List when no limit is given
const DefaultLimit = 20

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	workflow TEXT NOT NULL,
	outcome TEXT NOT NULL,
	efficiency REAL NOT NULL,
	recorded_at INTEGER NOT NULL, -- Unix nanoseconds
	summary_json TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize runs schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a summary, replacing any earlier summary of the same run
func (s *Store) Record(ctx context.Context, summary stageflow.Summary) error {
	if summary.WorkflowID == "" {
		return errors.New("record run: summary has no workflow id")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	recordedAt := time.Now().UTC()
	if summary.CompletedAt != nil {
		recordedAt = summary.CompletedAt.UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow, outcome, efficiency, recorded_at, summary_json)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 workflow = excluded.workflow,
		 outcome = excluded.outcome,
		 efficiency = excluded.efficiency,
		 recorded_at = excluded.recorded_at,
		 summary_json = excluded.summary_json`,
		summary.WorkflowID,
		summary.Workflow,
		string(summary.Outcome),
		summary.Efficiency,
		recordedAt.UnixNano(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", summary.WorkflowID, err)
	}
	return nil
}

// List returns the most recent summaries first. A limit <= 0 uses DefaultLimit.
func (s *Store) List(ctx context.Context, limit int) ([]stageflow.Summary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary_json FROM runs ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []stageflow.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary, err := unmarshalSummary(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Get returns the summary of one run
func (s *Store) Get(ctx context.Context, id string) (stageflow.Summary, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stageflow.Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return stageflow.Summary{}, fmt.Errorf("query run %s: %w", id, err)
	}
	return unmarshalSummary(payload)
}

// Purge deletes every recorded run and reports how many were removed
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return n, nil
}

// openDB opens a SQLite database with standard pragmas (WAL mode, busy timeout).
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

func unmarshalSummary(payload string) (stageflow.Summary, error) {
	var summary stageflow.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return stageflow.Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, nil
}
