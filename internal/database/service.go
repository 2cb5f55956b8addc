package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/resilience"
)

const (
	// DefaultListLimit is used when a caller passes a non-positive limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page of run history.
	MaxListLimit = 500
)

// RunService records and serves pipeline run history
type RunService struct {
	repo  *Repository
	now   func() time.Time
	retry resilience.RetryConfig
}

// NewRunService creates a new run service
func NewRunService(repo *Repository) *RunService {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = IsBusy

	return &RunService{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		retry: retry,
	}
}

// Record stores a completed pipeline result and returns the new run
func (s *RunService) Record(ctx context.Context, result *analysis.Result, duration time.Duration) (*Run, error) {
	run := NewRun(result.Source, result.ModelHandle)
	run.CreatedAt = s.now()
	run.Selected = result.Selected
	run.RowsIn = result.RowsBefore
	run.Rows = result.Rows()
	run.RowsDropped = result.RowsDropped
	run.DurationMS = duration.Milliseconds()
	run.ClusterCounts = make([]ClusterCount, 0, len(result.Clusters))
	for _, c := range result.Clusters {
		run.ClusterCounts = append(run.ClusterCounts, ClusterCount{ClusterID: c.ClusterID, Count: c.Size})
	}
	if result.Model != nil {
		run.Inertia = result.Model.Inertia
	}
	if d := result.Diagnostics; d != nil && d.Silhouette != nil {
		mean := d.Silhouette.Mean
		run.Silhouette = &mean
	}

	// Concurrent uploads can contend for the write lock past busy_timeout.
	err := resilience.RetryWithConfig(ctx, s.retry, func() error {
		return s.repo.InsertRun(ctx, run)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	return run, nil
}

// Get returns the run with the given id
func (s *RunService) Get(ctx context.Context, id string) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

// List returns recent runs; limit is clamped to [1, MaxListLimit]
func (s *RunService) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListRuns(ctx, limit)
}
