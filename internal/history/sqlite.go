// Package history persists task runs and schedule definitions to SQLite.
// The orchestrator reports runs through its Recorder interface; the HTTP API
// reads this store for task and schedule listings.
package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/JoshCap20/areion/internal/cronspec"
	"github.com/JoshCap20/areion/internal/orchestrator"
)

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS task_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  task_id TEXT NOT NULL,
  name TEXT NOT NULL,
  started_at DATETIME NOT NULL,
  finished_at DATETIME NOT NULL,
  success INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_task_runs_task ON task_runs(task_id, started_at DESC);
CREATE TABLE IF NOT EXISTS schedules (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  cron_expr TEXT NOT NULL,
  task_type TEXT NOT NULL,
  payload BLOB,
  next_run DATETIME,
  last_run DATETIME,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

// RunRecord is one completed task execution.
type RunRecord struct {
	TaskID   string    `json:"task_id"`
	Name     string    `json:"name"`
	Started  time.Time `json:"started_at"`
	Finished time.Time `json:"finished_at"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}

// Schedule is a persisted cron registration.
type Schedule struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CronExpr  string     `json:"cron_expr"`
	TaskType  string     `json:"task_type"`
	Payload   []byte     `json:"payload,omitempty"`
	NextRun   time.Time  `json:"next_run"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// RecordRun implements orchestrator.Recorder. It writes on its own deadline
// so records survive workers whose context was cancelled during shutdown,
// and swallows write errors: history is observability, not correctness.
func (s *Store) RecordRun(_ context.Context, r orchestrator.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	success := 0
	if r.Error == "" {
		success = 1
	}
	_, _ = s.db.ExecContext(ctx, `
INSERT INTO task_runs (task_id, name, started_at, finished_at, success, error)
VALUES (?,?,?,?,?,?)`,
		r.ID, r.Name, r.Started, r.Started.Add(r.Duration), success, r.Error)

	// Cron firings run under their schedule's ID, so a completed run is the
	// moment to advance that schedule's last_run and next_run.
	if strings.HasPrefix(r.ID, "sch_") {
		s.touchSchedule(ctx, r.ID, r.Started)
	}
}

func (s *Store) touchSchedule(ctx context.Context, id string, firedAt time.Time) {
	var expr string
	if err := s.db.QueryRowContext(ctx, "SELECT cron_expr FROM schedules WHERE id=?", id).Scan(&expr); err != nil {
		return
	}
	next, err := cronspec.NextRun(expr, firedAt)
	if err != nil {
		return
	}
	_, _ = s.db.ExecContext(ctx, "UPDATE schedules SET last_run=?, next_run=? WHERE id=?",
		firedAt, next, id)
}

func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT task_id, name, started_at, finished_at, success, error
FROM task_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var success int
		if err := rows.Scan(&r.TaskID, &r.Name, &r.Started, &r.Finished, &success, &r.Error); err != nil {
			return nil, err
		}
		r.Success = success == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run for a task ID.
func (s *Store) LatestRun(ctx context.Context, taskID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT task_id, name, started_at, finished_at, success, error
FROM task_runs WHERE task_id=? ORDER BY started_at DESC, id DESC LIMIT 1`, taskID)
	var r RunRecord
	var success int
	if err := row.Scan(&r.TaskID, &r.Name, &r.Started, &r.Finished, &success, &r.Error); err != nil {
		return RunRecord{}, err
	}
	r.Success = success == 1
	return r, nil
}

func (s *Store) CreateSchedule(ctx context.Context, sch Schedule) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO schedules (id, name, cron_expr, task_type, payload, next_run, created_at)
VALUES (?,?,?,?,?,?,CURRENT_TIMESTAMP)`,
		sch.ID, sch.Name, sch.CronExpr, sch.TaskType, sch.Payload, sch.NextRun)
	return err
}

func (s *Store) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, cron_expr, task_type, payload, next_run, last_run, created_at
FROM schedules WHERE id=?`, id)
	return scanSchedule(row)
}

func (s *Store) ListSchedules(ctx context.Context) ([]Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, cron_expr, task_type, payload, next_run, last_run, created_at
FROM schedules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// UpdateSchedule rewrites the mutable fields of an existing schedule.
func (s *Store) UpdateSchedule(ctx context.Context, sch Schedule) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE schedules SET name=?, cron_expr=?, task_type=?, payload=?, next_run=? WHERE id=?`,
		sch.Name, sch.CronExpr, sch.TaskType, sch.Payload, sch.NextRun, sch.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id=?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (Schedule, error) {
	var sch Schedule
	var nextRun, lastRun sql.NullTime
	if err := row.Scan(&sch.ID, &sch.Name, &sch.CronExpr, &sch.TaskType, &sch.Payload, &nextRun, &lastRun, &sch.CreatedAt); err != nil {
		return Schedule{}, err
	}
	if nextRun.Valid {
		sch.NextRun = nextRun.Time
	}
	if lastRun.Valid {
		t := lastRun.Time
		sch.LastRun = &t
	}
	return sch, nil
}
