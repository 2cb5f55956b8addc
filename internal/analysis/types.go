package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
)

// Classification is a personality class.
type Classification string

const (
	Introverted Classification = "Introverted"
	Ambivalent  Classification = "Ambivalent"
	Extroverted Classification = "Extroverted"
)

// Columns added to result tables.
const (
	ColumnTotalScore     = "total_score"
	ColumnClassification = "classification"
	ColumnClusterID      = "cluster_id"
	ColumnPredictedLabel = "predicted_label"
)

var (
	ErrEmptySelection      = errors.New("none of the selected questions are present in the dataset")
	ErrNoFeatureColumns    = errors.New("no numeric feature columns left for clustering")
	ErrClusteringUnderflow = errors.New("fewer usable rows than clusters")
	ErrUnsupportedK        = errors.New("label assignment requires exactly three clusters")
	ErrDegenerateClusters  = errors.New("label assignment requires every cluster to be populated")
	ErrExport              = errors.New("failed to export results")
)

// SelectionError lists every category a question selection leaves short.
type SelectionError struct {
	Violations []catalog.Violation
}

func (e *SelectionError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s requires %d, selected %d", v.Category, v.Required, v.Selected)
	}
	return "question selection does not meet category minimums: " + strings.Join(parts, "; ")
}

// EncodedRow is one respondent after answer encoding. Blank and Unmapped
// list the questions whose value is missing, split by cause.
type EncodedRow struct {
	Source   int
	Fields   map[string]string
	Codes    map[string]int
	Blank    []string
	Unmapped []string
}

// EncodedMatrix is the respondents x questions code matrix.
type EncodedMatrix struct {
	Questions []string
	Extra     []string
	Rows      []EncodedRow
}

// ScoreRow is an encoded row with its category subtotals, total and class.
// ClusterID is -1 until the row has been clustered.
type ScoreRow struct {
	Source         int
	Fields         map[string]string
	Codes          map[string]int
	CategoryScores map[string]int
	TotalScore     int
	Classification Classification
	ClusterID      int
	PredictedLabel Classification
}

// DropReport counts removed rows by cause.
type DropReport struct {
	BlankAnswers    int `json:"blank_answers"`
	UnmappedAnswers int `json:"unmapped_answers"`
	MissingFeatures int `json:"missing_features"`
}

// ScoreTable is the output of the scoring step.
type ScoreTable struct {
	Questions  []string
	Categories []string
	Extra      []string
	Rows       []ScoreRow
	RowsBefore int
	Drops      DropReport
}

// RowsDropped is rows_before - rows_after for the scoring step.
func (t *ScoreTable) RowsDropped() int {
	return t.RowsBefore - len(t.Rows)
}

// NumericColumns lists the selected questions, the category columns and the
// total score, in that order.
func (t *ScoreTable) NumericColumns() []string {
	cols := make([]string, 0, len(t.Questions)+len(t.Categories)+1)
	cols = append(cols, t.Questions...)
	cols = append(cols, t.Categories...)
	return append(cols, ColumnTotalScore)
}

// Value returns the numeric value of col for the row; ok is false when the
// column is not numeric or the value is missing.
func (r ScoreRow) Value(col string) (float64, bool) {
	if col == ColumnTotalScore {
		return float64(r.TotalScore), true
	}
	if v, ok := r.CategoryScores[col]; ok {
		return float64(v), true
	}
	if v, ok := r.Codes[col]; ok {
		return float64(v), true
	}
	return 0, false
}
