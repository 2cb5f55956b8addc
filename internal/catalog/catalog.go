// Package catalog holds the static survey configuration: the ordered question
// catalog with its answer options, the category taxonomy over it, and the codec
// that maps raw export text onto question ids and ordinal codes.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/textnorm"
	"gopkg.in/yaml.v3"
)

//go:embed survey.yaml
var embeddedSurvey []byte

// Option is one accepted answer text and the ordinal code it encodes to.
type Option struct {
	Text string `yaml:"text" json:"text"`
	Code int    `yaml:"code" json:"code"`
}

// Definition is a catalog entry before ids are assigned.
type Definition struct {
	Text    string   `yaml:"text"`
	Options []Option `yaml:"options"`
}

// Question is a catalog entry. ID is positional: the n-th definition is "p<n>".
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

type surveyFile struct {
	Questions  []Definition `yaml:"questions"`
	Categories []Category   `yaml:"categories"`
}

// Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	questions []Question
	position  map[string]int
	headers   map[string]string
	options   []map[string]int
	taxonomy  *Taxonomy
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog embedded in the binary, parsed once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedSurvey)
	})
	return defaultCatalog, defaultErr
}

// LoadFile parses a survey YAML file from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a survey YAML document.
func Parse(data []byte) (*Catalog, error) {
	var f surveyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return Build(f.Questions, f.Categories)
}

// Build assigns positional ids to defs and validates the result. Two questions
// whose texts normalize to the same header, two options of one question that
// normalize to the same key, or a repeated code within one question are errors.
func Build(defs []Definition, categories []Category) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}

	c := &Catalog{
		questions: make([]Question, 0, len(defs)),
		position:  make(map[string]int, len(defs)),
		headers:   make(map[string]string, len(defs)),
		options:   make([]map[string]int, 0, len(defs)),
	}

	for i, def := range defs {
		id := fmt.Sprintf("p%d", i+1)
		header := textnorm.Normalize(def.Text)
		if header == "" {
			return nil, fmt.Errorf("question %s has empty text", id)
		}
		if other, dup := c.headers[header]; dup {
			return nil, fmt.Errorf("question %s duplicates the text of %s", id, other)
		}
		if len(def.Options) == 0 {
			return nil, fmt.Errorf("question %s has no options", id)
		}

		keys := make(map[string]int, len(def.Options))
		codes := make(map[int]string, len(def.Options))
		for _, opt := range def.Options {
			key := textnorm.Normalize(opt.Text)
			if key == "" {
				return nil, fmt.Errorf("question %s has an empty option", id)
			}
			if _, dup := keys[key]; dup {
				return nil, fmt.Errorf("question %s: option %q collides with another option after normalization", id, opt.Text)
			}
			if prev, dup := codes[opt.Code]; dup {
				return nil, fmt.Errorf("question %s: options %q and %q share code %d", id, prev, opt.Text, opt.Code)
			}
			keys[key] = opt.Code
			codes[opt.Code] = opt.Text
		}

		c.position[id] = i
		c.headers[header] = id
		c.options = append(c.options, keys)
		c.questions = append(c.questions, Question{
			ID:      id,
			Text:    def.Text,
			Options: append([]Option(nil), def.Options...),
		})
	}

	taxonomy, err := newTaxonomy(categories, c.position)
	if err != nil {
		return nil, err
	}
	c.taxonomy = taxonomy

	return c, nil
}

// Questions returns the catalog entries in catalog order.
func (c *Catalog) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

// IDs returns every question id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.questions))
	for i, q := range c.questions {
		ids[i] = q.ID
	}
	return ids
}

// Question looks up a question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.position[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Has reports whether id names a catalog question.
func (c *Catalog) Has(id string) bool {
	_, ok := c.position[id]
	return ok
}

// Len is the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Taxonomy returns the category model configured alongside the questions.
func (c *Catalog) Taxonomy() *Taxonomy {
	return c.taxonomy
}
