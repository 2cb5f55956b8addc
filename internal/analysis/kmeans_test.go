package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointTable builds a score table with two question features per row.
func pointTable(points [][2]int) *ScoreTable {
	t := &ScoreTable{Questions: []string{"p1", "p2"}, RowsBefore: len(points)}
	for i, p := range points {
		t.Rows = append(t.Rows, ScoreRow{
			Source:         i,
			Codes:          map[string]int{"p1": p[0], "p2": p[1]},
			CategoryScores: map[string]int{},
			TotalScore:     p[0] + p[1],
			ClusterID:      -1,
		})
	}
	return t
}

var separated = [][2]int{{1, 1}, {1, 2}, {2, 1}, {10, 10}, {10, 11}, {11, 10}, {20, 1}, {21, 1}, {20, 2}}

func TestDefaultKMeansConfig(t *testing.T) {
	cfg := DefaultKMeansConfig()
	assert.Equal(t, 3, cfg.K)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 10, cfg.NInit)
	assert.Equal(t, 300, cfg.MaxIter)

	engine := NewClusterEngine(KMeansConfig{Seed: 7})
	assert.Equal(t, 3, engine.Config().K, "zero fields fall back to defaults")
	assert.Equal(t, int64(7), engine.Config().Seed)
}

func TestClusterEngine_FitAndAssign(t *testing.T) {
	engine := NewClusterEngine(DefaultKMeansConfig())
	table := pointTable(separated)

	result, err := engine.FitAndAssign(table, []string{ColumnTotalScore})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, result.Features)
	require.Len(t, result.Rows, 9)
	assert.Equal(t, 0, result.Dropped)
	assert.Len(t, result.Model.Centers, 3)
	assert.Equal(t, result.Features, result.Model.Features)

	for g := 0; g < 3; g++ {
		id := result.Assignments[g*3]
		assert.Equal(t, id, result.Assignments[g*3+1])
		assert.Equal(t, id, result.Assignments[g*3+2])
		assert.Equal(t, id, result.Rows[g*3].ClusterID)
	}
	assert.NotEqual(t, result.Assignments[0], result.Assignments[3])
	assert.NotEqual(t, result.Assignments[3], result.Assignments[6])
	assert.NotEqual(t, result.Assignments[0], result.Assignments[6])

	for _, row := range table.Rows {
		assert.Equal(t, -1, row.ClusterID, "input table is not modified")
	}
}

func TestClusterEngine_Deterministic(t *testing.T) {
	engine := NewClusterEngine(DefaultKMeansConfig())

	first, err := engine.FitAndAssign(pointTable(separated), []string{ColumnTotalScore})
	require.NoError(t, err)
	second, err := engine.FitAndAssign(pointTable(separated), []string{ColumnTotalScore})
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Model.Centers, second.Model.Centers)
	assert.InDelta(t, first.Model.Inertia, second.Model.Inertia, 1e-12)
}

func TestClusterEngine_Errors(t *testing.T) {
	engine := NewClusterEngine(DefaultKMeansConfig())

	tests := []struct {
		name     string
		table    *ScoreTable
		excluded []string
		expected error
	}{
		{
			name:     "every numeric column excluded",
			table:    pointTable(separated),
			excluded: []string{"p1", "p2", ColumnTotalScore},
			expected: ErrNoFeatureColumns,
		},
		{
			name:     "fewer rows than clusters",
			table:    pointTable([][2]int{{1, 1}, {2, 2}}),
			excluded: []string{ColumnTotalScore},
			expected: ErrClusteringUnderflow,
		},
		{
			name:     "no rows",
			table:    pointTable(nil),
			excluded: []string{ColumnTotalScore},
			expected: ErrClusteringUnderflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.FitAndAssign(tt.table, tt.excluded)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestClusterEngine_DropsRowsMissingFeatures(t *testing.T) {
	table := pointTable(separated)
	delete(table.Rows[4].Codes, "p2")

	result, err := NewClusterEngine(DefaultKMeansConfig()).FitAndAssign(table, []string{ColumnTotalScore})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	assert.Len(t, result.Rows, 8)
	for _, row := range result.Rows {
		assert.NotEqual(t, 4, row.Source)
	}
}

func TestClusterEngine_Elbow(t *testing.T) {
	engine := NewClusterEngine(DefaultKMeansConfig())

	points, err := engine.Elbow(pointTable([][2]int{{0, 0}, {0, 2}, {4, 0}, {4, 2}}), []string{ColumnTotalScore}, 10)
	require.NoError(t, err)

	require.Len(t, points, 4, "k is capped at the row count")
	assert.Equal(t, 1, points[0].K)
	assert.InDelta(t, 20.0, points[0].Inertia, 1e-9)
	assert.InDelta(t, 4.0, points[1].Inertia, 1e-9)
	assert.InDelta(t, 0.0, points[3].Inertia, 1e-9)
	for i := 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].Inertia, points[i-1].Inertia)
	}

	_, err = engine.Elbow(pointTable(nil), []string{ColumnTotalScore}, 10)
	assert.ErrorIs(t, err, ErrClusteringUnderflow)
}

func TestModel_Predict(t *testing.T) {
	m := &Model{K: 2, Centers: [][]float64{{0, 0}, {10, 10}}}

	assert.Equal(t, 0, m.Predict([]float64{1, 2}))
	assert.Equal(t, 1, m.Predict([]float64{9, 8}))
	assert.Equal(t, 0, m.Predict([]float64{5, 5}), "ties go to the lowest index")
}
