// Package textnorm canonicalizes survey headers and answers so that exports with
// inconsistent casing, accents, spacing or question marks map to the same keys.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// markers are dropped wherever they appear.
var markers = strings.NewReplacer("¿", "", "?", "", "¡", "", "!", "")

// foldAccents returns a fresh transformer; transform chains hold state and
// must not be shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize lower-cases s, strips diacritics and interrogation/exclamation
// markers, and collapses runs of whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(foldAccents(), s); err == nil {
		s = strings.ToLower(folded)
	}
	s = markers.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Value normalizes string values and returns every other value unchanged.
func Value(v any) any {
	if s, ok := v.(string); ok {
		return Normalize(s)
	}
	return v
}
