package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/textnorm"
)

// ModelStore persists a fitted model together with its training data and
// returns the model handle. Implementations must never expose a model whose
// data file is missing.
type ModelStore interface {
	Save(base string, model *Model, data *dataset.Table) (string, error)
}

// Options for one pipeline run.
type Options struct {
	// Source is the uploaded file name; it names the persisted artifacts.
	Source string
	// Questions restricts scoring and clustering to these ids. Empty means
	// every catalog question found in the data, without category validation.
	Questions []string
	// OutputDir receives the clustered CSV and prediction XLSX. Empty skips
	// the export.
	OutputDir string
}

// Result is everything a completed run reports.
type Result struct {
	Source      string
	Selected    []string
	RowsBefore  int
	RowsDropped int
	Drops       DropReport
	Table       *dataset.Table
	Model       *Model
	ModelHandle string
	Files       ExportFiles
	Labels      LabelMap
	Clusters    []ClusterSummary
	Diagnostics *Diagnostics
}

// Rows is the number of respondents retained in the result table.
func (r *Result) Rows() int {
	return r.Table.Len()
}

// Analyzer orchestrates encode, score, cluster, label, persist and diagnose.
type Analyzer struct {
	catalog      *catalog.Catalog
	preprocessor *Preprocessor
	scorer       *ScoringEngine
	clusters     *ClusterEngine
	diagnostics  *DiagnosticsEngine
	store        ModelStore
}

// NewAnalyzer wires the pipeline components over cat.
func NewAnalyzer(cat *catalog.Catalog, cfg KMeansConfig, store ModelStore, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		catalog:      cat,
		preprocessor: NewPreprocessor(catalog.NewCodec(cat)),
		scorer:       NewScoringEngine(cat.Taxonomy()),
		clusters:     NewClusterEngine(cfg),
		diagnostics:  NewDiagnosticsEngine(logger),
		store:        store,
	}
}

// Config returns the effective clustering configuration.
func (a *Analyzer) Config() KMeansConfig {
	return a.clusters.Config()
}

// Run executes the pipeline over an already parsed table. A failed run
// persists nothing.
func (a *Analyzer) Run(table *dataset.Table, opts Options) (*Result, error) {
	encoded := a.preprocessor.Encode(table)

	selected, err := a.selectQuestions(encoded, opts.Questions)
	if err != nil {
		return nil, err
	}

	scored := a.scorer.Score(encoded, selected)

	clustered, err := a.clusters.FitAndAssign(scored, a.excludedColumns(scored))
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	labels, summaries, err := LabelRows(clustered.Rows, clustered.Model.K)
	if err != nil {
		return nil, fmt.Errorf("label assignment failed: %w", err)
	}

	out := resultTable(scored, clustered.Rows)

	// Exports are written before the model; a failed save removes them.
	var files ExportFiles
	if opts.OutputDir != "" {
		files, err = Export(opts.OutputDir, opts.Source, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExport, err)
		}
	}

	handle, err := a.store.Save(artifactBase(opts.Source), clustered.Model, trainingTable(scored, clustered))
	if err != nil {
		files.Remove(opts.OutputDir)
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}

	drops := scored.Drops
	drops.MissingFeatures = clustered.Dropped

	return &Result{
		Source:      opts.Source,
		Selected:    selected,
		RowsBefore:  scored.RowsBefore,
		RowsDropped: scored.RowsBefore - len(clustered.Rows),
		Drops:       drops,
		Table:       out,
		Model:       clustered.Model,
		ModelHandle: handle,
		Files:       files,
		Labels:      labels,
		Clusters:    summaries,
		Diagnostics: a.diagnostics.Compute(clustered.Features, clustered.Matrix, clustered.Assignments),
	}, nil
}

// Elbow reports k-means inertia for k = 1..maxK over the same question
// selection Run would use. Nothing is persisted.
func (a *Analyzer) Elbow(table *dataset.Table, questions []string, maxK int) ([]ElbowPoint, error) {
	encoded := a.preprocessor.Encode(table)

	selected, err := a.selectQuestions(encoded, questions)
	if err != nil {
		return nil, err
	}

	scored := a.scorer.Score(encoded, selected)
	return a.clusters.Elbow(scored, a.excludedColumns(scored), maxK)
}

// selectQuestions resolves the requested ids against the questions present in
// the data. An explicit request is validated against category minimums.
func (a *Analyzer) selectQuestions(m *EncodedMatrix, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), m.Questions...), nil
	}

	want := make(map[string]bool, len(requested))
	for _, id := range requested {
		want[strings.ToLower(strings.TrimSpace(id))] = true
	}

	var selected []string
	for _, id := range m.Questions {
		if want[id] {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	if violations := a.catalog.Taxonomy().Validate(selected); len(violations) > 0 {
		return nil, &SelectionError{Violations: violations}
	}
	return selected, nil
}

// excludedColumns keeps category subtotals and the total out of the feature
// set; unselected questions never enter the score table.
func (a *Analyzer) excludedColumns(t *ScoreTable) []string {
	return append(append([]string(nil), t.Categories...), ColumnTotalScore)
}

// artifactBase derives the artifact name stem from the uploaded file name.
func artifactBase(source string) string {
	base := textnorm.Slug(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	if base == "" {
		return "dataset"
	}
	return base
}

// resultTable renders retained rows as: free fields, selected questions,
// category subtotals, total, classification, cluster id, predicted label.
func resultTable(t *ScoreTable, rows []ScoreRow) *dataset.Table {
	header := make([]string, 0, len(t.Extra)+len(t.Questions)+len(t.Categories)+4)
	header = append(header, t.Extra...)
	header = append(header, t.Questions...)
	header = append(header, t.Categories...)
	header = append(header, ColumnTotalScore, ColumnClassification, ColumnClusterID, ColumnPredictedLabel)

	out := &dataset.Table{Header: header, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		cells := make([]string, 0, len(header))
		for _, name := range t.Extra {
			cells = append(cells, row.Fields[name])
		}
		for _, id := range t.Questions {
			cells = append(cells, strconv.Itoa(row.Codes[id]))
		}
		for _, name := range t.Categories {
			cells = append(cells, strconv.Itoa(row.CategoryScores[name]))
		}
		cells = append(cells,
			strconv.Itoa(row.TotalScore),
			string(row.Classification),
			strconv.Itoa(row.ClusterID),
			string(row.PredictedLabel),
		)
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// trainingTable is the retained feature matrix plus the score columns and
// cluster ids, persisted next to the model.
func trainingTable(t *ScoreTable, c *ClusterResult) *dataset.Table {
	header := make([]string, 0, len(c.Features)+len(t.Categories)+2)
	header = append(header, c.Features...)
	header = append(header, t.Categories...)
	header = append(header, ColumnTotalScore, ColumnClusterID)

	out := &dataset.Table{Header: header, Rows: make([][]string, 0, len(c.Rows))}
	for i, row := range c.Rows {
		cells := make([]string, 0, len(header))
		for j := range c.Features {
			cells = append(cells, strconv.FormatFloat(c.Matrix.At(i, j), 'g', -1, 64))
		}
		for _, name := range t.Categories {
			cells = append(cells, strconv.Itoa(row.CategoryScores[name]))
		}
		cells = append(cells, strconv.Itoa(row.TotalScore), strconv.Itoa(row.ClusterID))
		out.Rows = append(out.Rows, cells)
	}
	return out
}
