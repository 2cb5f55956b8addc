package catalog

import (
	"strings"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/textnorm"
)

// Field types produced by FieldsFromTable.
const (
	FieldSelect = "select"
	FieldText   = "text"
)

// Field is one form field derived from a survey export column.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// skippedColumns are export bookkeeping columns, compared normalized.
var skippedColumns = map[string]bool{
	"marca temporal": true,
	"puntuacion":     true,
	"score":          true,
	"timestamp":      true,
}

func isNameColumn(key string) bool {
	return key == "nombre" || strings.HasPrefix(key, "cual es tu nombre")
}

// FieldsFromTable turns a survey export into form fields: one select per
// question column with its distinct answers in first-seen order, and a text
// field for the respondent name column.
func FieldsFromTable(t *dataset.Table) []Field {
	fields := make([]Field, 0, len(t.Header))
	for col, header := range t.Header {
		label := strings.TrimSpace(header)
		key := textnorm.Normalize(label)
		if label == "" || skippedColumns[key] {
			continue
		}

		field := Field{Name: textnorm.Slug(label), Label: label, Type: FieldSelect}
		if isNameColumn(key) {
			field.Type = FieldText
			fields = append(fields, field)
			continue
		}

		seen := make(map[string]bool)
		field.Options = []string{}
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[col])
			if dataset.IsMissing(cell) || seen[cell] {
				continue
			}
			seen[cell] = true
			field.Options = append(field.Options, cell)
		}
		fields = append(fields, field)
	}
	return fields
}
