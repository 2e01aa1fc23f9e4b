// File: internal/journal/journal.go
// Brief: SQLite journal of services stack runs and their task events.

// Package journal persists every orchestrated run (one row per transition) and the task events it
// emitted, so operators can see what was attempted against a stack and where it stopped.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	_ "modernc.org/sqlite"

	"github.com/example/kycstack/internal/lifecycle"
)

// DefaultRelPath is the journal location under the user's home directory.
const DefaultRelPath = ".kycstack/journal.sqlite"

const writeTimeout = 5 * time.Second

// Run status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded transition.
type Run struct {
	ID         string
	Stack      string
	Transition lifecycle.Transition
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Entry is one recorded task event.
type Entry struct {
	Time    time.Time
	Type    lifecycle.EventType
	Task    string
	Message string
}

// Store is the journal database. It implements lifecycle.Observer; write failures are logged
// and never interrupt a run.
type Store struct {
	db  *sql.DB
	log logr.Logger

	mu      sync.Mutex
	current string
	newID   func() string
}

// DefaultPath resolves the journal path under the home directory.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultRelPath), nil
}

// Open opens (and creates if needed) the journal at path. A leading ~ expands to the home
// directory.
func Open(ctx context.Context, path string, log logr.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand journal path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, log: log, newID: uuid.NewString}
	if err := s.initSchema(pingCtx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
		`
CREATE TABLE IF NOT EXISTS kyc_runs (
  run_id TEXT PRIMARY KEY,
  stack_name TEXT NOT NULL,
  transition TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT NOT NULL,
  started_at_ns INTEGER NOT NULL,
  finished_at_ns INTEGER NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS kyc_run_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  ts_ns INTEGER NOT NULL,
  type TEXT NOT NULL,
  task TEXT NOT NULL,
  message TEXT NOT NULL,
  FOREIGN KEY (run_id) REFERENCES kyc_runs(run_id) ON DELETE CASCADE
);`,
		`CREATE INDEX IF NOT EXISTS idx_kyc_run_events_run_id_id ON kyc_run_events(run_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_kyc_runs_stack_started ON kyc_runs(stack_name, started_at_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ObserveEvent records ev against the run in progress.
func (s *Store) ObserveEvent(ev lifecycle.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.record(ctx, ev); err != nil {
		s.log.Error(err, "journal write failed", "event", ev.Type, "stack", ev.Stack)
	}
}

func (s *Store) record(ctx context.Context, ev lifecycle.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	switch ev.Type {
	case lifecycle.RunStarted:
		id := s.newID()
		_, err := s.db.ExecContext(ctx, `
INSERT INTO kyc_runs (run_id, stack_name, transition, status, error, started_at_ns, finished_at_ns)
VALUES (?, ?, ?, ?, '', ?, 0)`, id, ev.Stack, string(ev.Transition), StatusRunning, ts.UnixNano())
		if err != nil {
			return err
		}
		s.current = id
		return nil
	case lifecycle.RunCompleted:
		if s.current == "" {
			return errors.New("run completed without a started run")
		}
		status, msg := StatusSucceeded, ""
		if ev.Err != nil {
			status, msg = StatusFailed, ev.Err.Error()
		}
		_, err := s.db.ExecContext(ctx, `
UPDATE kyc_runs SET status = ?, error = ?, finished_at_ns = ? WHERE run_id = ?`, status, msg, ts.UnixNano(), s.current)
		s.current = ""
		return err
	default:
		if s.current == "" {
			return fmt.Errorf("%s event without a started run", ev.Type)
		}
		_, err := s.db.ExecContext(ctx, `
INSERT INTO kyc_run_events (run_id, ts_ns, type, task, message) VALUES (?, ?, ?, ?, ?)`,
			s.current, ts.UnixNano(), string(ev.Type), ev.Task, ev.Message)
		return err
	}
}

// Runs lists the most recent runs, newest first. An empty stack lists every stack.
func (s *Store) Runs(ctx context.Context, stack string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id, stack_name, transition, status, error, started_at_ns, finished_at_ns FROM kyc_runs`
	args := []any{}
	if stack = strings.TrimSpace(stack); stack != "" {
		query += ` WHERE stack_name = ?`
		args = append(args, stack)
	}
	query += ` ORDER BY started_at_ns DESC, rowid DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var (
			r                 Run
			transition        string
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Stack, &transition, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.Transition = lifecycle.Transition(transition)
		r.StartedAt = time.Unix(0, started).UTC()
		if finished > 0 {
			r.FinishedAt = time.Unix(0, finished).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Entries returns the task events of one run in emission order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts_ns, type, task, message FROM kyc_run_events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e   Entry
			ts  int64
			typ string
		)
		if err := rows.Scan(&ts, &typ, &e.Task, &e.Message); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts).UTC()
		e.Type = lifecycle.EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
