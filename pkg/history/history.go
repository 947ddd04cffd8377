// Package history keeps a local SQLite record of smoke-test runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"chaincheck/pkg/logx"
)

const timeLayout = time.RFC3339Nano

// Stage is one stage outcome within a run.
type Stage struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Run is a single recorded invocation.
type Run struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	SDKVersion  string    `json:"sdk_version,omitempty"`
	Stages      []Stage   `json:"stages"`
	ExitCode    int       `json:"exit_code"`
	UsedDefault bool      `json:"used_default"`
}

// Store is a run history database.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger := logx.NewLogger("history")
	logger.Debug("history database ready: %s", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}

// Record stores a run and its stages. A missing ID is filled with a new UUID.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, provider, model, used_default, exit_code, sdk_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Provider,
		run.Model,
		boolToInt(run.UsedDefault),
		run.ExitCode,
		run.SDKVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, st := range run.Stages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stages (run_id, seq, name, status, detail) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, st.Name, st.Status, st.Detail)
		if err != nil {
			return fmt.Errorf("failed to insert stage %s: %w", st.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	s.logger.Debug("recorded run %s (exit %d)", run.ID, run.ExitCode)
	return nil
}

// Recent returns up to limit runs, newest first, with their stages.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, provider, model, used_default, exit_code, sdk_version
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			usedDefault       int
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Provider, &r.Model, &usedDefault, &r.ExitCode, &r.SDKVersion); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", r.ID, err)
		}
		r.UsedDefault = usedDefault != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		stages, err := s.stages(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

// Get returns a single run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var (
		r                 Run
		started, finished string
		usedDefault       int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, provider, model, used_default, exit_code, sdk_version
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &started, &finished, &r.Provider, &r.Model, &usedDefault, &r.ExitCode, &r.SDKVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s: bad started_at: %w", id, err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("run %s: bad finished_at: %w", id, err)
	}
	r.UsedDefault = usedDefault != 0

	if r.Stages, err = s.stages(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

func (s *Store) stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, detail FROM stages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var stages []Stage
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.Name, &st.Status, &st.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stages: %w", err)
	}
	return stages, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
