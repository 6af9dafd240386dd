// Package store persists the pipeline outputs and run history in SQLite so
// the estimator can start without the CSV outputs on disk.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"adshub/pkg/contracts/domain"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id TEXT NOT NULL,
		name TEXT NOT NULL,
		account TEXT,
		brand TEXT,
		ad_format TEXT,
		quarter TEXT,
		cost REAL NOT NULL DEFAULT 0,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_campaigns_id ON campaigns(campaign_id);`,

	`CREATE TABLE IF NOT EXISTS rolling_windows (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id TEXT NOT NULL,
		window_start TEXT,
		window_end TEXT,
		type TEXT,
		reach REAL,
		avg_frequency REAL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rolling_campaign ON rolling_windows(campaign_id);`,

	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		strategy TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		campaigns INTEGER NOT NULL DEFAULT 0,
		windows INTEGER NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		error TEXT,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);`,
}

// Store is a SQLite database of campaigns, rolling windows and runs
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		return fmt.Errorf("failed to configure store: %w", err)
	}
	for i, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Path returns the database file
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// replace swaps the contents of table inside one transaction
func (s *Store) replace(ctx context.Context, table string, n int, insert string, args func(i int) ([]any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// ReplaceCampaigns stores the master dataset, replacing the previous one
func (s *Store) ReplaceCampaigns(ctx context.Context, campaigns []domain.Campaign) error {
	return s.replace(ctx, "campaigns", len(campaigns),
		`INSERT INTO campaigns (campaign_id, name, account, brand, ad_format, quarter, cost, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		func(i int) ([]any, error) {
			c := campaigns[i]
			data, err := json.Marshal(c)
			if err != nil {
				return nil, fmt.Errorf("failed to encode campaign %s: %w", c.ID, err)
			}
			return []any{c.ID, c.Name, c.Account, c.Brand, c.AdFormat, c.Quarter, c.Cost, string(data)}, nil
		})
}

// ReplaceRolling stores the clean rolling windows, replacing the previous ones
func (s *Store) ReplaceRolling(ctx context.Context, windows []domain.RollingWindow) error {
	return s.replace(ctx, "rolling_windows", len(windows),
		`INSERT INTO rolling_windows (campaign_id, window_start, window_end, type, reach, avg_frequency, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		func(i int) ([]any, error) {
			w := windows[i]
			data, err := json.Marshal(w)
			if err != nil {
				return nil, fmt.Errorf("failed to encode window %s: %w", w.CampaignID, err)
			}
			return []any{w.CampaignID, w.WindowStart, w.WindowEnd, w.Type, nullable(w.Reach), nullable(w.AvgFrequency), string(data)}, nil
		})
}

func nullable(m domain.Measure) sql.NullFloat64 {
	return sql.NullFloat64{Float64: m.Value, Valid: m.Valid}
}

func queryJSON[T any](ctx context.Context, s *Store, query string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Campaigns returns the stored master dataset in insertion order
func (s *Store) Campaigns(ctx context.Context) ([]domain.Campaign, error) {
	return queryJSON[domain.Campaign](ctx, s, `SELECT data FROM campaigns ORDER BY seq`)
}

// Rolling returns the stored rolling windows in insertion order
func (s *Store) Rolling(ctx context.Context) ([]domain.RollingWindow, error) {
	return queryJSON[domain.RollingWindow](ctx, s, `SELECT data FROM rolling_windows ORDER BY seq`)
}

// Counts returns the number of stored campaigns and rolling windows
func (s *Store) Counts(ctx context.Context) (campaigns, windows int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, 0, ErrClosed
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM campaigns), (SELECT COUNT(*) FROM rolling_windows)`).Scan(&campaigns, &windows)
	return campaigns, windows, err
}

// Run is one recorded pipeline execution
type Run struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Strategy   string            `json:"strategy,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Campaigns  int               `json:"campaigns"`
	Windows    int               `json:"windows"`
	TotalCost  float64           `json:"total_cost"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RecordRun inserts or updates a pipeline run
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run ID is required")
	}
	meta, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode run metadata: %w", err)
	}
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, status, strategy, started_at, finished_at, campaigns, windows, total_cost, error, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			strategy = excluded.strategy,
			finished_at = excluded.finished_at,
			campaigns = excluded.campaigns,
			windows = excluded.windows,
			total_cost = excluded.total_cost,
			error = excluded.error,
			metadata = excluded.metadata`,
		run.ID, run.Status, run.Strategy, run.StartedAt.UTC(), finished,
		run.Campaigns, run.Windows, run.TotalCost, run.Error, string(meta))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns the most recent runs first. A limit of zero returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, strategy, started_at, finished_at, campaigns, windows, total_cost, error, metadata
		FROM pipeline_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                       Run
			strategy, errText, meta sql.NullString
			finished                sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Status, &strategy, &r.StartedAt, &finished,
			&r.Campaigns, &r.Windows, &r.TotalCost, &errText, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Strategy = strategy.String
		r.Error = errText.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode run metadata: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
