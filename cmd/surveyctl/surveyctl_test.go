package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`storage:
  data_dir: %q
  model_dir: %q
  output_dir: %q
log:
  level: error
`, dir, filepath.Join(dir, "models"), filepath.Join(dir, "output"))

	path := filepath.Join(dir, "survey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return &testEnv{dir: dir, config: path}
}

func (te *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", te.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

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

// writeSurvey writes nine respondents in three well separated groups.
func (te *testEnv) writeSurvey(t *testing.T, name string) string {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	groups := [][]int{
		answers(1, 5), answers(3, 25), answers(2, 20),
		answers(1, 4), answers(3, 24), answers(2, 19),
		answers(1, 6), answers(3, 26), answers(2, 21),
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"Nombre"}
	for _, q := range cat.Questions() {
		header = append(header, q.Text)
	}
	require.NoError(t, w.Write(header))
	for r, codes := range groups {
		row := []string{"persona " + strconv.Itoa(r+1)}
		for i, q := range cat.Questions() {
			for _, opt := range q.Options {
				if opt.Code == codes[i] {
					row = append(row, opt.Text)
				}
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())

	path := filepath.Join(te.dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "elbow", "models", "runs", "catalog"}, names)
}

func TestRunCommand(t *testing.T) {
	te := newTestEnv(t)
	survey := te.writeSurvey(t, "encuesta.csv")

	out, err := te.execute(t, "run", survey)
	require.NoError(t, err)
	assert.Contains(t, out, "Rows:     9 kept, 0 dropped")
	assert.Contains(t, out, "clustered_encuesta.csv")
	assert.Contains(t, out, "Introverted")
	assert.Contains(t, out, "Extroverted")

	assert.FileExists(t, filepath.Join(te.dir, "output", "clustered_encuesta.csv"))
	assert.FileExists(t, filepath.Join(te.dir, "output", "prediction_encuesta.xlsx"))

	t.Run("models list", func(t *testing.T) {
		out, err := te.execute(t, "models", "list", "--json")
		require.NoError(t, err)

		var list struct {
			Models []string `json:"models"`
			Count  int      `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Equal(t, 1, list.Count)
		assert.True(t, strings.HasPrefix(list.Models[0], "kmeans_encuesta_"))

		out, err = te.execute(t, "models", "info", list.Models[0])
		require.NoError(t, err)
		assert.Contains(t, out, "Clusters:  3")
		assert.Contains(t, out, "Rows:      9")
	})

	t.Run("run history", func(t *testing.T) {
		out, err := te.execute(t, "runs", "--json")
		require.NoError(t, err)

		var runs []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "encuesta.csv", runs[0]["source"])
	})
}

func TestRunCommand_Errors(t *testing.T) {
	te := newTestEnv(t)
	survey := te.writeSurvey(t, "encuesta.csv")

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "missing argument", args: []string{"run"}, errContains: "accepts 1 arg"},
		{name: "missing file", args: []string{"run", filepath.Join(te.dir, "nope.csv")}, errContains: "nope.csv"},
		{name: "unsupported format", args: []string{"run", filepath.Join(te.dir, "survey.yaml")}, errContains: "unsupported file format"},
		{name: "category minimums unmet", args: []string{"run", survey, "--questions", "p1,p2"}, errContains: "category"},
		{name: "unknown model", args: []string{"models", "info", "kmeans_x.gob"}, errContains: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := te.execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRunCommand_ExportFailureLeavesNoModel(t *testing.T) {
	te := newTestEnv(t)
	survey := te.writeSurvey(t, "encuesta.csv")
	blocker := filepath.Join(te.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := te.execute(t, "run", survey, "--out", filepath.Join(blocker, "out"), "--no-history")
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(te.dir, "models"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestElbowCommand(t *testing.T) {
	te := newTestEnv(t)
	survey := te.writeSurvey(t, "encuesta.csv")

	out, err := te.execute(t, "elbow", survey, "--max-k", "3", "--json")
	require.NoError(t, err)

	var resp struct {
		Points []struct {
			K       int     `json:"k"`
			Inertia float64 `json:"inertia"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Points, 3)
	assert.Greater(t, resp.Points[0].Inertia, resp.Points[2].Inertia)

	_, err = os.Stat(filepath.Join(te.dir, "models"))
	assert.True(t, os.IsNotExist(err), "elbow must not persist models")
}

func TestCatalogCommands(t *testing.T) {
	te := newTestEnv(t)

	t.Run("show", func(t *testing.T) {
		out, err := te.execute(t, "catalog", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "p45")
		assert.Contains(t, out, "Sociabilidad (min")
	})

	t.Run("export to stdout", func(t *testing.T) {
		survey := te.writeSurvey(t, "hoja.csv")
		out, err := te.execute(t, "catalog", "export", survey)
		require.NoError(t, err)

		var fields []catalog.Field
		require.NoError(t, json.Unmarshal([]byte(out), &fields))
		require.Len(t, fields, 46)
		assert.Equal(t, catalog.Field{Name: "nombre", Label: "Nombre", Type: catalog.FieldText}, fields[0])
		assert.Equal(t, catalog.FieldSelect, fields[1].Type)
	})

	t.Run("export to file", func(t *testing.T) {
		survey := te.writeSurvey(t, "hoja.csv")
		target := filepath.Join(te.dir, "questions.json")
		out, err := te.execute(t, "catalog", "export", survey, "-o", target)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})
}
