package analysis

import (
	"strconv"
	"testing"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func optionText(t *testing.T, q catalog.Question, code int) string {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Code == code {
			return opt.Text
		}
	}
	t.Fatalf("question %s has no option with code %d", q.ID, code)
	return ""
}

// answers returns 45 codes: base everywhere except the first raised
// questions, which get base+1.
func answers(base, raised int) []int {
	codes := make([]int, 45)
	for i := range codes {
		codes[i] = base
		if i < raised {
			codes[i] = base + 1
		}
	}
	return codes
}

// surveyTable renders codes as a raw export: a name column followed by one
// column per catalog question, headed by the question text.
func surveyTable(t *testing.T, cat *catalog.Catalog, codes [][]int) *dataset.Table {
	t.Helper()
	questions := cat.Questions()
	header := []string{"Nombre"}
	for _, q := range questions {
		header = append(header, q.Text)
	}

	table := &dataset.Table{Header: header}
	for r, row := range codes {
		cells := []string{"persona " + strconv.Itoa(r+1)}
		for i, q := range questions {
			cells = append(cells, optionText(t, q, row[i]))
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// groupedCodes builds three groups of three respondents around total scores
// of 50, 110 and 160.
func groupedCodes() [][]int {
	return [][]int{
		answers(1, 5), answers(3, 25), answers(2, 20),
		answers(1, 4), answers(3, 24), answers(2, 19),
		answers(1, 6), answers(3, 26), answers(2, 21),
	}
}

type memStore struct {
	saves int
	base  string
	model *Model
	data  *dataset.Table
	err   error
}

func (s *memStore) Save(base string, model *Model, data *dataset.Table) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saves++
	s.base, s.model, s.data = base, model, data
	return "kmeans_" + base + "_test.gob", nil
}
