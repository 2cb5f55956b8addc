package types

import (
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
)

// PreviewRows is how many result rows the pipeline response previews.
const PreviewRows = 5

// UnclassifiedCategory is reported for questions outside every category.
const UnclassifiedCategory = "Unclassified"

// QuestionDTO is one catalog question as served by the API
type QuestionDTO struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Category string           `json:"category"`
	Options  []catalog.Option `json:"options"`
}

// NewQuestionDTOs exports the catalog in question order
func NewQuestionDTOs(cat *catalog.Catalog) []QuestionDTO {
	taxonomy := cat.Taxonomy()
	out := make([]QuestionDTO, 0, cat.Len())
	for _, q := range cat.Questions() {
		category, ok := taxonomy.CategoryOf(q.ID)
		if !ok {
			category = UnclassifiedCategory
		}
		out = append(out, QuestionDTO{
			ID:       q.ID,
			Text:     q.Text,
			Category: category,
			Options:  q.Options,
		})
	}
	return out
}

// PipelineResponse is the body of a successful dataset upload
type PipelineResponse struct {
	RunID             string                    `json:"run_id,omitempty"`
	Source            string                    `json:"source"`
	Rows              int                       `json:"rows"`
	RowsDropped       int                       `json:"rows_dropped"`
	DropReport        analysis.DropReport       `json:"drop_report"`
	Columns           []string                  `json:"columns"`
	Preview           [][]string                `json:"preview"`
	Table             [][]string                `json:"table"`
	SelectedQuestions []string                  `json:"selected_questions"`
	Model             string                    `json:"model"`
	Clusters          []analysis.ClusterSummary `json:"clusters"`
	Files             analysis.ExportFiles      `json:"files"`
	Diagnostics       *analysis.Diagnostics     `json:"diagnostics"`
}

// NewPipelineResponse renders a pipeline result for the API
func NewPipelineResponse(result *analysis.Result, runID string, files analysis.ExportFiles) *PipelineResponse {
	return &PipelineResponse{
		RunID:             runID,
		Source:            result.Source,
		Rows:              result.Rows(),
		RowsDropped:       result.RowsDropped,
		DropReport:        result.Drops,
		Columns:           result.Table.Header,
		Preview:           result.Table.Preview(PreviewRows),
		Table:             result.Table.Rows,
		SelectedQuestions: result.Selected,
		Model:             result.ModelHandle,
		Clusters:          result.Clusters,
		Files:             files,
		Diagnostics:       result.Diagnostics,
	}
}

// ElbowResponse carries inertia per k for one uploaded dataset
type ElbowResponse struct {
	Source    string                `json:"source"`
	Questions []string              `json:"questions,omitempty"`
	Points    []analysis.ElbowPoint `json:"points"`
}

// PredictRequest is a single respondent's answers keyed by header text or question id
type PredictRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// PredictResponse is a prediction against a named model
type PredictResponse struct {
	Model string `json:"model"`
	*analysis.Prediction
}

// ModelListResponse lists persisted model handles
type ModelListResponse struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
}

// HealthResponse is served by /health
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Time    time.Time              `json:"time"`
	Checks  map[string]string      `json:"checks"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
}
