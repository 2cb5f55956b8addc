package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
)

// AnswerError reports the model features a single respondent could not
// supply.
type AnswerError struct {
	Missing   []string
	Unmapped  []string
	Duplicate []string
}

func (e *AnswerError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing answers for "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unmapped) > 0 {
		parts = append(parts, "unrecognized answers for "+strings.Join(e.Unmapped, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "answered more than once: "+strings.Join(e.Duplicate, ", "))
	}
	return "incomplete answers: " + strings.Join(parts, "; ")
}

// Prediction is the outcome for one respondent scored against a stored model.
type Prediction struct {
	Codes          map[string]int `json:"codes"`
	TotalScore     int            `json:"total_score"`
	Classification Classification `json:"classification"`
	ClusterID      int            `json:"cluster_id"`
	PredictedLabel Classification `json:"predicted_label"`
}

// Predictor scores single respondents against fitted models.
type Predictor struct {
	codec *catalog.Codec
}

// NewPredictor creates a predictor over cat.
func NewPredictor(cat *catalog.Catalog) *Predictor {
	return &Predictor{codec: catalog.NewCodec(cat)}
}

// Predict encodes answers (keyed by question id or question text), assigns
// the nearest cluster of model and labels it with the label map recomputed
// from the model's training data. A question keyed more than once, by id and
// text or by two spellings of its text, is rejected.
func (p *Predictor) Predict(model *Model, training *dataset.Table, answers map[string]string) (*Prediction, error) {
	byID := make(map[string]string, len(answers))
	keys := make(map[string]int, len(answers))
	for key, raw := range answers {
		id := p.codec.ResolveColumn(key)
		byID[id] = raw
		keys[id]++
	}

	pred := &Prediction{Codes: make(map[string]int, len(model.Features))}
	vector := make([]float64, len(model.Features))
	ansErr := &AnswerError{}
	for i, id := range model.Features {
		if keys[id] > 1 {
			ansErr.Duplicate = append(ansErr.Duplicate, id)
			continue
		}
		raw, ok := byID[id]
		if !ok || dataset.IsMissing(raw) {
			ansErr.Missing = append(ansErr.Missing, id)
			continue
		}
		code, ok := p.codec.Encode(id, raw)
		if !ok {
			ansErr.Unmapped = append(ansErr.Unmapped, id)
			continue
		}
		pred.Codes[id] = code
		pred.TotalScore += code
		vector[i] = float64(code)
	}
	if len(ansErr.Missing) > 0 || len(ansErr.Unmapped) > 0 || len(ansErr.Duplicate) > 0 {
		return nil, ansErr
	}

	labels, err := TrainingLabels(training, model.K)
	if err != nil {
		return nil, err
	}

	pred.Classification = Classify(pred.TotalScore)
	pred.ClusterID = model.Predict(vector)
	pred.PredictedLabel = labels[pred.ClusterID]
	return pred, nil
}

// TrainingLabels recomputes the cluster label map from a persisted training
// table.
func TrainingLabels(training *dataset.Table, k int) (LabelMap, error) {
	clusterCol := training.ColumnIndex(ColumnClusterID)
	totalCol := training.ColumnIndex(ColumnTotalScore)
	if clusterCol < 0 || totalCol < 0 {
		return nil, fmt.Errorf("training data lacks %s or %s column", ColumnClusterID, ColumnTotalScore)
	}

	assignments := make([]int, 0, training.Len())
	totals := make([]float64, 0, training.Len())
	for i, row := range training.Rows {
		c, err := strconv.Atoi(strings.TrimSpace(row[clusterCol]))
		if err != nil {
			return nil, fmt.Errorf("training row %d: invalid cluster id: %w", i+1, err)
		}
		total, err := strconv.ParseFloat(strings.TrimSpace(row[totalCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("training row %d: invalid total score: %w", i+1, err)
		}
		assignments = append(assignments, c)
		totals = append(totals, total)
	}

	labels, _, err := AssignLabels(assignments, totals, k)
	return labels, err
}
