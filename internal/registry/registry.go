// Package registry keeps a local SQLite log of training runs.
package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/xaibench/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned by Get for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so created_at sorts as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded training run.
type Run struct {
	ID          string             `json:"id"`
	Dataset     string             `json:"dataset"`
	Target      string             `json:"target"`
	Model       string             `json:"model"`
	Algorithm   string             `json:"algorithm"`
	ProblemType string             `json:"problem_type"`
	Split       string             `json:"split"`
	Metrics     map[string]float64 `json:"metrics"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Registry stores runs in a SQLite database.
type Registry struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// Use ":memory:" for a throwaway registry.
func Open(ctx context.Context, path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open registry %s", path)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping registry %s", path)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize registry schema")
	}
	return &Registry{db: db, path: path, now: time.Now}, nil
}

// Path returns the database path.
func (r *Registry) Path() string { return r.path }

// Close closes the database.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record stores run, filling in ID and CreatedAt when they are empty.
func (r *Registry) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return errors.Wrap(err, "encode metrics")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, target, model, algorithm, problem_type, split, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Target, run.Model, run.Algorithm, run.ProblemType, run.Split,
		string(metrics), run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.Wrapf(err, "record run %s", run.ID)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (r *Registry) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, dataset, target, model, algorithm, problem_type, split, metrics, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, errors.Wrap(rows.Err(), "list runs")
}

// Get returns the run with the given id.
func (r *Registry) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, dataset, target, model, algorithm, problem_type, split, metrics, created_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run     Run
		metrics string
		created string
	)
	err := s.Scan(&run.ID, &run.Dataset, &run.Target, &run.Model, &run.Algorithm,
		&run.ProblemType, &run.Split, &metrics, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return nil, errors.Wrapf(err, "decode metrics of run %s", run.ID)
	}
	run.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, errors.Wrapf(err, "decode created_at of run %s", run.ID)
	}
	return &run, nil
}
