package analysis

import (
	"testing"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		expected Classification
	}{
		{name: "minimum", total: 45, expected: Introverted},
		{name: "introverted upper bound", total: 90, expected: Introverted},
		{name: "just above introverted", total: 91, expected: Ambivalent},
		{name: "ambivalent upper bound", total: 135, expected: Ambivalent},
		{name: "just above ambivalent", total: 136, expected: Extroverted},
		{name: "maximum", total: 225, expected: Extroverted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.total))
		})
	}
}

func TestScoringEngine_MidpointRespondents(t *testing.T) {
	cat := testCatalog(t)
	codes := make([][]int, 10)
	for i := range codes {
		codes[i] = answers(3, 0)
	}

	m := NewPreprocessor(catalog.NewCodec(cat)).Encode(surveyTable(t, cat, codes))
	scored := NewScoringEngine(cat.Taxonomy()).Score(m, m.Questions)

	require.Len(t, scored.Rows, 10)
	assert.Equal(t, 0, scored.RowsDropped())
	for _, row := range scored.Rows {
		assert.Equal(t, 135, row.TotalScore)
		assert.Equal(t, Ambivalent, row.Classification)
		assert.Equal(t, -1, row.ClusterID)
	}
}

func TestScoringEngine_Conservation(t *testing.T) {
	cat := testCatalog(t)
	m := NewPreprocessor(catalog.NewCodec(cat)).Encode(surveyTable(t, cat, groupedCodes()))
	scored := NewScoringEngine(cat.Taxonomy()).Score(m, m.Questions)

	require.Len(t, scored.Rows, 9)
	for _, row := range scored.Rows {
		sum := 0
		for _, name := range scored.Categories {
			sum += row.CategoryScores[name]
		}
		assert.Equal(t, row.TotalScore, sum)
	}
}

func TestScoringEngine_Selection(t *testing.T) {
	cat := testCatalog(t)
	m := NewPreprocessor(catalog.NewCodec(cat)).Encode(surveyTable(t, cat, [][]int{answers(2, 0)}))

	scored := NewScoringEngine(cat.Taxonomy()).Score(m, []string{"p1", "p5", "p8"})

	require.Len(t, scored.Rows, 1)
	row := scored.Rows[0]
	assert.Equal(t, 6, row.TotalScore)
	assert.Equal(t, 4, row.CategoryScores["Sociabilidad"])
	assert.Equal(t, 2, row.CategoryScores["Afecto positivo"])
	assert.Equal(t, 0, row.CategoryScores["Búsqueda de emociones"], "a category with no selected member scores zero")
	assert.Len(t, row.CategoryScores, 5)
	assert.Equal(t, []string{"p1", "p5", "p8"}, scored.Questions)
}

func TestScoringEngine_Drops(t *testing.T) {
	cat := testCatalog(t)
	table := surveyTable(t, cat, [][]int{answers(3, 0), answers(3, 0), answers(3, 0), answers(3, 0)})
	// Column 0 is the name; question pN sits in column N.
	table.Rows[1][1] = ""
	table.Rows[2][2] = "no se"
	table.Rows[3][45] = " "
	table.Rows[3][44] = "respuesta invalida"

	m := NewPreprocessor(catalog.NewCodec(cat)).Encode(table)
	engine := NewScoringEngine(cat.Taxonomy())

	tests := []struct {
		name     string
		selected []string
		rows     int
		drops    DropReport
	}{
		{
			name:     "all questions",
			selected: m.Questions,
			rows:     1,
			drops:    DropReport{BlankAnswers: 2, UnmappedAnswers: 1},
		},
		{
			name:     "missing answers outside the selection are ignored",
			selected: []string{"p3", "p4"},
			rows:     4,
		},
		{
			name:     "only the unmapped question",
			selected: []string{"p2"},
			rows:     3,
			drops:    DropReport{UnmappedAnswers: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored := engine.Score(m, tt.selected)
			assert.Len(t, scored.Rows, tt.rows)
			assert.Equal(t, tt.drops, scored.Drops)
			assert.Equal(t, 4, scored.RowsBefore)
			assert.Equal(t, 4-tt.rows, scored.RowsDropped())
		})
	}
}
