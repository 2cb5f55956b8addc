package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignLabels(t *testing.T) {
	tests := []struct {
		name        string
		assignments []int
		totals      []float64
		expected    LabelMap
	}{
		{
			name:        "ids already in score order",
			assignments: []int{0, 0, 1, 1, 2, 2},
			totals:      []float64{50, 52, 110, 108, 160, 161},
			expected:    LabelMap{0: Introverted, 1: Ambivalent, 2: Extroverted},
		},
		{
			name:        "ids in reverse score order",
			assignments: []int{2, 2, 1, 1, 0, 0},
			totals:      []float64{50, 52, 110, 108, 160, 161},
			expected:    LabelMap{2: Introverted, 1: Ambivalent, 0: Extroverted},
		},
		{
			name:        "interleaved rows",
			assignments: []int{1, 0, 2, 1, 0, 2},
			totals:      []float64{150, 100, 40, 170, 90, 60},
			expected:    LabelMap{2: Introverted, 0: Ambivalent, 1: Extroverted},
		},
		{
			name:        "equal means ordered by cluster id",
			assignments: []int{0, 1, 2},
			totals:      []float64{100, 100, 20},
			expected:    LabelMap{2: Introverted, 0: Ambivalent, 1: Extroverted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, summaries, err := AssignLabels(tt.assignments, tt.totals, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, labels)

			require.Len(t, summaries, 3)
			byLabel := make(map[Classification]float64)
			for i, s := range summaries {
				assert.Equal(t, i, s.ClusterID, "summaries are ordered by cluster id")
				assert.Equal(t, labels[s.ClusterID], s.Label)
				byLabel[s.Label] = s.MeanTotalScore
			}
			assert.LessOrEqual(t, byLabel[Introverted], byLabel[Ambivalent])
			assert.LessOrEqual(t, byLabel[Ambivalent], byLabel[Extroverted])
		})
	}
}

func TestAssignLabels_Errors(t *testing.T) {
	tests := []struct {
		name        string
		assignments []int
		totals      []float64
		k           int
		expected    error
	}{
		{name: "two clusters", assignments: []int{0, 1}, totals: []float64{1, 2}, k: 2, expected: ErrUnsupportedK},
		{name: "four clusters", assignments: []int{0, 1, 2, 3}, totals: []float64{1, 2, 3, 4}, k: 4, expected: ErrUnsupportedK},
		{name: "empty cluster", assignments: []int{0, 0, 2}, totals: []float64{1, 2, 3}, k: 3, expected: ErrDegenerateClusters},
		{name: "no rows", k: 3, expected: ErrDegenerateClusters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := AssignLabels(tt.assignments, tt.totals, tt.k)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	t.Run("length mismatch", func(t *testing.T) {
		_, _, err := AssignLabels([]int{0, 1, 2}, []float64{1, 2}, 3)
		assert.Error(t, err)
	})

	t.Run("unclustered row", func(t *testing.T) {
		_, _, err := AssignLabels([]int{0, 1, 2, -1}, []float64{1, 2, 3, 4}, 3)
		assert.Error(t, err)
	})
}

func TestLabelRows(t *testing.T) {
	rows := []ScoreRow{
		{TotalScore: 160, ClusterID: 0},
		{TotalScore: 50, ClusterID: 1},
		{TotalScore: 110, ClusterID: 2},
		{TotalScore: 158, ClusterID: 0},
	}

	labels, _, err := LabelRows(rows, 3)
	require.NoError(t, err)

	assert.Equal(t, LabelMap{0: Extroverted, 1: Introverted, 2: Ambivalent}, labels)
	assert.Equal(t, Extroverted, rows[0].PredictedLabel)
	assert.Equal(t, Introverted, rows[1].PredictedLabel)
	assert.Equal(t, Ambivalent, rows[2].PredictedLabel)
	assert.Equal(t, Extroverted, rows[3].PredictedLabel)
}
