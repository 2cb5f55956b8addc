package analysis

import (
	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
)

// Preprocessor resolves headers onto catalog questions and encodes answers.
type Preprocessor struct {
	codec *catalog.Codec
}

// NewPreprocessor creates a preprocessor over codec.
func NewPreprocessor(codec *catalog.Codec) *Preprocessor {
	return &Preprocessor{codec: codec}
}

// Encode converts raw rows into codes. Question columns are ordered as in the
// catalog; every other column is carried through as a free field. When two
// headers resolve to the same question only the first one is encoded.
func (p *Preprocessor) Encode(table *dataset.Table) *EncodedMatrix {
	cat := p.codec.Catalog()

	questionCol := make(map[string]int)
	extraCol := make(map[string]int)
	var extra []string
	for i, header := range table.Header {
		id := p.codec.ResolveColumn(header)
		if cat.Has(id) {
			if _, seen := questionCol[id]; !seen {
				questionCol[id] = i
				continue
			}
			id = header
		}
		if _, seen := extraCol[id]; seen {
			continue
		}
		extraCol[id] = i
		extra = append(extra, id)
	}

	var questions []string
	for _, id := range cat.IDs() {
		if _, ok := questionCol[id]; ok {
			questions = append(questions, id)
		}
	}

	m := &EncodedMatrix{
		Questions: questions,
		Extra:     extra,
		Rows:      make([]EncodedRow, 0, table.Len()),
	}

	for r, cells := range table.Rows {
		row := EncodedRow{
			Source: r,
			Fields: make(map[string]string, len(extra)),
			Codes:  make(map[string]int, len(questions)),
		}
		for _, name := range extra {
			row.Fields[name] = cells[extraCol[name]]
		}
		for _, id := range questions {
			raw := cells[questionCol[id]]
			if dataset.IsMissing(raw) {
				row.Blank = append(row.Blank, id)
				continue
			}
			code, ok := p.codec.Encode(id, raw)
			if !ok {
				row.Unmapped = append(row.Unmapped, id)
				continue
			}
			row.Codes[id] = code
		}
		m.Rows = append(m.Rows, row)
	}

	return m
}
