package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likert(texts ...string) []Option {
	opts := make([]Option, len(texts))
	for i, text := range texts {
		opts[i] = Option{Text: text, Code: i + 1}
	}
	return opts
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 45, c.Len())

	questions := c.Questions()
	for i, q := range questions {
		assert.Equal(t, fmt.Sprintf("p%d", i+1), q.ID)
		assert.Len(t, q.Options, 5, "question %s", q.ID)
	}

	first, ok := c.Question("p1")
	require.True(t, ok)
	assert.Equal(t, "¿Qué tan cómodo te sientes al iniciar una conversación con alguien que no conoces?", first.Text)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestDefault_TaxonomyPartitionsCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tax := c.Taxonomy()
	assert.Equal(t, []string{
		"Sociabilidad",
		"Asertividad / Liderazgo",
		"Nivel de actividad",
		"Búsqueda de emociones",
		"Afecto positivo",
	}, tax.Names())
	assert.Empty(t, tax.Uncovered(c.IDs()))

	total := 0
	for _, cat := range tax.Categories() {
		total += len(cat.Members)
	}
	assert.Equal(t, c.Len(), total)

	for _, id := range []string{"p20", "p29", "p30"} {
		name, ok := tax.CategoryOf(id)
		require.True(t, ok, id)
		assert.Equal(t, "Afecto positivo", name, id)
	}
	assert.Len(t, tax.Intersect("Asertividad / Liderazgo", c.IDs()), 8)
}

func TestBuild_Errors(t *testing.T) {
	valid := []Definition{
		{Text: "¿Te gusta bailar?", Options: likert("Nunca", "A veces", "Siempre")},
		{Text: "¿Sales los fines de semana?", Options: likert("No", "Sí")},
	}

	tests := []struct {
		name       string
		defs       []Definition
		categories []Category
		errMsg     string
	}{
		{
			name:   "no questions",
			defs:   nil,
			errMsg: "no questions",
		},
		{
			name: "duplicate question after normalization",
			defs: []Definition{
				valid[0],
				{Text: "te gusta BAILAR", Options: likert("a", "b")},
			},
			errMsg: "duplicates the text of p1",
		},
		{
			name: "colliding options",
			defs: []Definition{
				{Text: "q", Options: []Option{{Text: "Sí", Code: 1}, {Text: " si ", Code: 2}}},
			},
			errMsg: "collides",
		},
		{
			name: "repeated code",
			defs: []Definition{
				{Text: "q", Options: []Option{{Text: "a", Code: 1}, {Text: "b", Code: 1}}},
			},
			errMsg: "share code 1",
		},
		{
			name:   "question without options",
			defs:   []Definition{{Text: "q"}},
			errMsg: "no options",
		},
		{
			name:       "unknown category member",
			defs:       valid,
			categories: []Category{{Name: "A", Minimum: 1, Members: []string{"p9"}}},
			errMsg:     "unknown question p9",
		},
		{
			name: "question in two categories",
			defs: valid,
			categories: []Category{
				{Name: "A", Minimum: 1, Members: []string{"p1"}},
				{Name: "B", Minimum: 1, Members: []string{"p1", "p2"}},
			},
			errMsg: "belongs to both",
		},
		{
			name:       "minimum above member count",
			defs:       valid,
			categories: []Category{{Name: "A", Minimum: 3, Members: []string{"p1", "p2"}}},
			errMsg:     "minimum 3",
		},
		{
			name: "category declared twice",
			defs: valid,
			categories: []Category{
				{Name: "A", Minimum: 1, Members: []string{"p1"}},
				{Name: "A", Minimum: 1, Members: []string{"p2"}},
			},
			errMsg: "declared twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.defs, tt.categories)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.yaml")
	doc := `questions:
  - text: "¿Te gusta bailar?"
    options:
      - {text: "Nunca", code: 1}
      - {text: "Siempre", code: 2}
categories:
  - name: Movimiento
    minimum: 1
    members: [p1]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, c.IDs())

	name, ok := c.Taxonomy().CategoryOf("p1")
	assert.True(t, ok)
	assert.Equal(t, "Movimiento", name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
