// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore records research runs and their final states in a
// SQLite database. A run is created once and completed once; completed
// runs are never rewritten.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrNotFound is returned for an unknown run id.
	ErrNotFound = errors.New("run not found")

	// ErrExists is returned when creating a run whose id is taken.
	ErrExists = errors.New("run already exists")

	// ErrFinished is returned when completing a run that is no longer
	// processing.
	ErrFinished = errors.New("run already finished")
)

// Run is one research run.
type Run struct {
	ID        string               `json:"run_id" yaml:"run_id"`
	Query     string               `json:"query" yaml:"query"`
	Status    Status               `json:"status" yaml:"status"`
	Outcome   types.Outcome        `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	State     *types.PipelineState `json:"state,omitempty" yaml:"state,omitempty"`
	Errors    []string             `json:"errors" yaml:"errors"`
	CreatedAt time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time            `json:"updated_at" yaml:"updated_at"`
}

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the run database at path and creates the schema
// if it does not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("run store path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating run store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			outcome TEXT,
			state TEXT,
			errors TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Create records a new run in the processing state.
func (s *Store) Create(ctx context.Context, id, query string) (Run, error) {
	now := s.now().UTC()
	ts := now.Format(timeFormat)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, status, errors, created_at, updated_at) VALUES (?, ?, ?, '[]', ?, ?)`,
		id, query, string(StatusProcessing), ts, ts)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return Run{}, fmt.Errorf("creating run %s: %w", id, ErrExists)
		}
		return Run{}, fmt.Errorf("creating run %s: %w", id, err)
	}
	return Run{ID: id, Query: query, Status: StatusProcessing, Errors: []string{}, CreatedAt: now, UpdatedAt: now}, nil
}

// Complete stores the final state of a processing run. A run whose state
// has no documents and at least one error is marked failed.
func (s *Store) Complete(ctx context.Context, id string, state types.PipelineState) error {
	outcome := state.Outcome()
	status := StatusCompleted
	if outcome == types.OutcomeFailed {
		status = StatusFailed
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state for run %s: %w", id, err)
	}
	errorsJSON, err := json.Marshal(state.Errors)
	if err != nil {
		return fmt.Errorf("encoding errors for run %s: %w", id, err)
	}

	return s.finish(ctx, id, status, outcome, string(stateJSON), string(errorsJSON))
}

// Fail marks a processing run failed without a final state.
func (s *Store) Fail(ctx context.Context, id string, reason string) error {
	errorsJSON, err := json.Marshal([]string{reason})
	if err != nil {
		return fmt.Errorf("encoding errors for run %s: %w", id, err)
	}
	return s.finish(ctx, id, StatusFailed, types.OutcomeFailed, "", string(errorsJSON))
}

func (s *Store) finish(ctx context.Context, id string, status Status, outcome types.Outcome, state, errs string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, outcome = ?, state = NULLIF(?, ''), errors = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status), string(outcome), state, errs, s.now().UTC().Format(timeFormat),
		id, string(StatusProcessing))
	if err != nil {
		return fmt.Errorf("completing run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("completing run %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("completing run %s: %w", id, ErrFinished)
}

// Get returns the run with id, including its final state once complete.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, status, outcome, state, errors, created_at, updated_at FROM runs WHERE id = ?`, id)
	r, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("reading run %s: %w", id, err)
	}
	return r, nil
}

// ListOptions filters List results. Zero values mean no filter.
type ListOptions struct {
	Status Status
	// Query matches runs whose query contains the text, case-insensitively.
	Query string
	Limit int
}

const defaultListLimit = 50

// List returns runs newest first, without their states.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, query, status, outcome, NULL, errors, created_at, updated_at FROM runs WHERE 1=1`)
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Query != "" {
		qb.WriteString(` AND lower(query) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Query))+"%")
	}
	qb.WriteString(` ORDER BY created_at DESC, id LIMIT ?`)
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner, withState bool) (Run, error) {
	var (
		r          Run
		status     string
		outcome    sql.NullString
		stateJSON  sql.NullString
		errorsJSON sql.NullString
		created    string
		updated    string
	)
	if err := sc.Scan(&r.ID, &r.Query, &status, &outcome, &stateJSON, &errorsJSON, &created, &updated); err != nil {
		return Run{}, err
	}
	r.Status = Status(status)
	r.Outcome = types.Outcome(outcome.String)
	r.CreatedAt, _ = time.Parse(timeFormat, created)
	r.UpdatedAt, _ = time.Parse(timeFormat, updated)

	r.Errors = []string{}
	if errorsJSON.Valid {
		if err := json.Unmarshal([]byte(errorsJSON.String), &r.Errors); err != nil {
			return Run{}, fmt.Errorf("decoding errors: %w", err)
		}
	}
	if withState && stateJSON.Valid {
		var st types.PipelineState
		if err := json.Unmarshal([]byte(stateJSON.String), &st); err != nil {
			return Run{}, fmt.Errorf("decoding state: %w", err)
		}
		r.State = &st
	}
	return r, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
