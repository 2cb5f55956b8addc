package catalog

import "fmt"

// Category groups questions and sets how many of them a selection must keep.
type Category struct {
	Name    string   `yaml:"name" json:"name"`
	Minimum int      `yaml:"minimum" json:"minimum"`
	Members []string `yaml:"members" json:"members"`
}

// Violation reports a category whose minimum a selection does not meet.
type Violation struct {
	Category string `json:"category"`
	Required int    `json:"required"`
	Selected int    `json:"selected"`
}

// Taxonomy is the fixed category model. Each question belongs to at most one category.
type Taxonomy struct {
	categories []Category
	owner      map[string]string
}

func newTaxonomy(categories []Category, known map[string]int) (*Taxonomy, error) {
	t := &Taxonomy{
		categories: make([]Category, 0, len(categories)),
		owner:      make(map[string]string),
	}

	names := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		if names[cat.Name] {
			return nil, fmt.Errorf("category %q declared twice", cat.Name)
		}
		names[cat.Name] = true

		if cat.Minimum < 0 || cat.Minimum > len(cat.Members) {
			return nil, fmt.Errorf("category %q: minimum %d outside [0, %d]", cat.Name, cat.Minimum, len(cat.Members))
		}
		for _, id := range cat.Members {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("category %q references unknown question %s", cat.Name, id)
			}
			if other, taken := t.owner[id]; taken {
				return nil, fmt.Errorf("question %s belongs to both %q and %q", id, other, cat.Name)
			}
			t.owner[id] = cat.Name
		}

		t.categories = append(t.categories, Category{
			Name:    cat.Name,
			Minimum: cat.Minimum,
			Members: append([]string(nil), cat.Members...),
		})
	}

	return t, nil
}

// Categories returns the categories in configured order.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, cat := range t.categories {
		out[i] = Category{Name: cat.Name, Minimum: cat.Minimum, Members: append([]string(nil), cat.Members...)}
	}
	return out
}

// Names returns the category names in configured order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.categories))
	for i, cat := range t.categories {
		names[i] = cat.Name
	}
	return names
}

// CategoryOf returns the category a question belongs to.
func (t *Taxonomy) CategoryOf(id string) (string, bool) {
	name, ok := t.owner[id]
	return name, ok
}

// Validate checks every category independently and returns all violations,
// in category order. An empty result means the selection is acceptable.
func (t *Taxonomy) Validate(selected []string) []Violation {
	present := make(map[string]bool, len(selected))
	for _, id := range selected {
		present[id] = true
	}

	var violations []Violation
	for _, cat := range t.categories {
		count := 0
		for _, id := range cat.Members {
			if present[id] {
				count++
			}
		}
		if count < cat.Minimum {
			violations = append(violations, Violation{
				Category: cat.Name,
				Required: cat.Minimum,
				Selected: count,
			})
		}
	}
	return violations
}

// Intersect returns the members of the named category that appear in
// selected, in selection order.
func (t *Taxonomy) Intersect(name string, selected []string) []string {
	var out []string
	for _, id := range selected {
		if t.owner[id] == name {
			out = append(out, id)
		}
	}
	return out
}

// Uncovered lists the ids outside every category, preserving input order.
func (t *Taxonomy) Uncovered(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := t.owner[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
