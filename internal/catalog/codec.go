package catalog

import "github.com/ZanzyTHEbar/survey-o-meter/internal/textnorm"

// Codec maps raw export text onto catalog ids and ordinal codes.
type Codec struct {
	catalog *Catalog
}

// NewCodec builds a codec over c.
func NewCodec(c *Catalog) *Codec {
	return &Codec{catalog: c}
}

// Catalog returns the catalog backing the codec.
func (c *Codec) Catalog() *Catalog {
	return c.catalog
}

// Encode returns the ordinal code for a raw answer. ok is false when the
// question is unknown or the answer matches none of its options; callers treat
// that as a missing value.
func (c *Codec) Encode(questionID, raw string) (code int, ok bool) {
	i, known := c.catalog.position[questionID]
	if !known {
		return 0, false
	}
	code, ok = c.catalog.options[i][textnorm.Normalize(raw)]
	return code, ok
}

// ResolveColumn maps a raw header (question text or question id) to its
// question id, or returns the header unchanged when it names no catalog
// question.
func (c *Codec) ResolveColumn(header string) string {
	key := textnorm.Normalize(header)
	if id, ok := c.catalog.headers[key]; ok {
		return id
	}
	if c.catalog.Has(key) {
		return key
	}
	return header
}
