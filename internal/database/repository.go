package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// InsertRun stores a run record
func (r *Repository) InsertRun(ctx context.Context, run *Run) error {
	stmt, err := r.db.GetPreparedStatement("insert_run")
	if err != nil {
		return err
	}

	selected, err := json.Marshal(nonNil(run.Selected))
	if err != nil {
		return fmt.Errorf("failed to encode selected questions: %w", err)
	}
	counts, err := json.Marshal(run.ClusterCounts)
	if err != nil {
		return fmt.Errorf("failed to encode cluster counts: %w", err)
	}

	var silhouette sql.NullFloat64
	if run.Silhouette != nil {
		silhouette = sql.NullFloat64{Float64: *run.Silhouette, Valid: true}
	}

	_, err = stmt.ExecContext(ctx,
		run.ID, run.Source, string(selected), run.RowsIn, run.Rows, run.RowsDropped,
		run.ModelHandle, run.Inertia, silhouette, string(counts), run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetRun fetches a run by id
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	stmt, err := r.db.GetPreparedStatement("get_run")
	if err != nil {
		return nil, err
	}

	run, err := scanRun(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns up to limit runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	stmt, err := r.db.GetPreparedStatement("list_runs")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		selected   string
		counts     string
		silhouette sql.NullFloat64
	)

	err := s.Scan(
		&run.ID, &run.Source, &selected, &run.RowsIn, &run.Rows, &run.RowsDropped,
		&run.ModelHandle, &run.Inertia, &silhouette, &counts, &run.DurationMS, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(selected), &run.Selected); err != nil {
		return nil, fmt.Errorf("corrupt selected questions for run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(counts), &run.ClusterCounts); err != nil {
		return nil, fmt.Errorf("corrupt cluster counts for run %s: %w", run.ID, err)
	}
	if silhouette.Valid {
		v := silhouette.Float64
		run.Silhouette = &v
	}

	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
