package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
)

// ExportFiles names the files written for one run, relative to the output
// directory.
type ExportFiles struct {
	Clustered  string `json:"clustered"`
	Prediction string `json:"prediction"`
}

// Remove deletes the exported files under dir, ignoring ones already gone.
func (f ExportFiles) Remove(dir string) {
	for _, name := range []string{f.Clustered, f.Prediction} {
		if name != "" {
			os.Remove(filepath.Join(dir, name))
		}
	}
}

// Export writes table as clustered_<base>.csv and prediction_<base>.xlsx
// under dir, with base derived from source. Either both files are written or
// neither is left behind.
func Export(dir, source string, table *dataset.Table) (ExportFiles, error) {
	base := artifactBase(source)
	files := ExportFiles{
		Clustered:  "clustered_" + base + ".csv",
		Prediction: "prediction_" + base + ".xlsx",
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportFiles{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := dataset.WriteFile(filepath.Join(dir, files.Clustered), table); err != nil {
		return ExportFiles{}, err
	}
	if err := dataset.WriteFile(filepath.Join(dir, files.Prediction), table); err != nil {
		os.Remove(filepath.Join(dir, files.Clustered))
		return ExportFiles{}, err
	}
	return files, nil
}
