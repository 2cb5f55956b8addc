package database

import (
	"time"

	"github.com/google/uuid"
)

// runColumns is the select list matching scanRun.
const runColumns = `id, source, selected, rows_in, rows_kept, rows_dropped, model_handle,
	inertia, silhouette, cluster_counts, duration_ms, created_at`

// ClusterCount is the number of respondents in one cluster of a run.
type ClusterCount struct {
	ClusterID int `json:"cluster_id"`
	Count     int `json:"count"`
}

// Run is one successful pipeline run
type Run struct {
	ID            string         `json:"id" db:"id"`
	Source        string         `json:"source" db:"source"`
	Selected      []string       `json:"selected_questions" db:"selected"`
	RowsIn        int            `json:"rows_in" db:"rows_in"`
	Rows          int            `json:"rows" db:"rows_kept"`
	RowsDropped   int            `json:"rows_dropped" db:"rows_dropped"`
	ModelHandle   string         `json:"model" db:"model_handle"`
	Inertia       float64        `json:"inertia" db:"inertia"`
	Silhouette    *float64       `json:"silhouette,omitempty" db:"silhouette"`
	ClusterCounts []ClusterCount `json:"cluster_counts" db:"cluster_counts"`
	DurationMS    int64          `json:"duration_ms" db:"duration_ms"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// NewRun creates a run record with a generated ID
func NewRun(source, modelHandle string) *Run {
	return &Run{
		ID:          uuid.New().String(),
		Source:      source,
		ModelHandle: modelHandle,
		CreatedAt:   time.Now().UTC(),
	}
}
