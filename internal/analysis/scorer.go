package analysis

import "github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"

// Classification cut points for 45 questions on a 1-5 scale. Both bounds are
// inclusive; re-derive them if the question count or scale changes.
const (
	introvertedMax = 90
	ambivalentMax  = 135
)

// Classify maps a total score onto its personality class.
func Classify(total int) Classification {
	switch {
	case total <= introvertedMax:
		return Introverted
	case total <= ambivalentMax:
		return Ambivalent
	default:
		return Extroverted
	}
}

// ScoringEngine sums category subtotals and totals over a question selection.
type ScoringEngine struct {
	taxonomy *catalog.Taxonomy
}

// NewScoringEngine creates a scoring engine for the taxonomy.
func NewScoringEngine(taxonomy *catalog.Taxonomy) *ScoringEngine {
	return &ScoringEngine{taxonomy: taxonomy}
}

// Score produces one row per respondent whose selected answers are all
// present. A row missing any selected answer is dropped and counted by cause;
// a blank cell takes precedence over an unmapped answer.
func (s *ScoringEngine) Score(m *EncodedMatrix, selected []string) *ScoreTable {
	categories := s.taxonomy.Names()
	members := make(map[string][]string, len(categories))
	for _, name := range categories {
		members[name] = s.taxonomy.Intersect(name, selected)
	}

	t := &ScoreTable{
		Questions:  append([]string(nil), selected...),
		Categories: categories,
		Extra:      append([]string(nil), m.Extra...),
		Rows:       make([]ScoreRow, 0, len(m.Rows)),
		RowsBefore: len(m.Rows),
	}

	wanted := make(map[string]bool, len(selected))
	for _, id := range selected {
		wanted[id] = true
	}

	for _, row := range m.Rows {
		if anyIn(row.Blank, wanted) {
			t.Drops.BlankAnswers++
			continue
		}
		if anyIn(row.Unmapped, wanted) {
			t.Drops.UnmappedAnswers++
			continue
		}

		scored := ScoreRow{
			Source:         row.Source,
			Fields:         row.Fields,
			Codes:          make(map[string]int, len(selected)),
			CategoryScores: make(map[string]int, len(categories)),
			ClusterID:      -1,
		}
		for _, id := range selected {
			code := row.Codes[id]
			scored.Codes[id] = code
			scored.TotalScore += code
		}
		for _, name := range categories {
			sum := 0
			for _, id := range members[name] {
				sum += row.Codes[id]
			}
			scored.CategoryScores[name] = sum
		}
		scored.Classification = Classify(scored.TotalScore)

		t.Rows = append(t.Rows, scored)
	}

	return t
}

func anyIn(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}
