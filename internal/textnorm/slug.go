package textnorm

import "strings"

// Slug turns s into a file-name safe identifier: normalized, with every run of
// characters outside [a-z0-9] replaced by a single underscore.
func Slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range Normalize(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
