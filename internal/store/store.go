// Package store is the local sqlite ledger of outbound actions and
// pipeline runs. The daily rate gate counts rows here, so the caps survive
// process restarts.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct{ db *sql.DB }

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS action_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action TEXT NOT NULL,
	lead_url TEXT,
	detail TEXT,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS run_logs (
	run_id TEXT PRIMARY KEY,
	run_type TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	summary TEXT
);
`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// RecordAction appends one outbound action to the ledger.
func (s *Store) RecordAction(ctx context.Context, action, leadURL, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_logs (action, lead_url, detail, created_at) VALUES (?, ?, ?, ?)`,
		action, leadURL, detail, time.Now())
	return err
}

// CountActionsToday counts how many actions of a kind ran today, local time.
func (s *Store) CountActionsToday(ctx context.Context, action string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM action_logs WHERE action = ? AND DATE(created_at) = DATE('now', 'localtime')`,
		action)
	var c int
	if err := row.Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}

func (s *Store) StartRun(ctx context.Context, runID, runType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (run_id, run_type, started_at) VALUES (?, ?, ?)`,
		runID, runType, time.Now())
	return err
}

func (s *Store) FinishRun(ctx context.Context, runID, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE run_logs SET ended_at = ?, summary = ? WHERE run_id = ?`,
		time.Now(), summary, runID)
	return err
}
