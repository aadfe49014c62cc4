package relay

import "strings"

// ContentFilter rejects replies containing any denylisted term. Matching ignores
// case, spaces, and commas, so "@ Every,one" matches "@everyone".
type ContentFilter struct {
	terms []string
}

// NewContentFilter creates a filter over denylist. Blank terms are ignored.
func NewContentFilter(denylist []string) *ContentFilter {
	f := &ContentFilter{}
	for _, term := range denylist {
		if norm := normalize(term); norm != "" {
			f.terms = append(f.terms, norm)
		}
	}
	return f
}

// Blocked reports whether text contains a denylisted term.
func (f *ContentFilter) Blocked(text string) bool {
	norm := normalize(text)
	for _, term := range f.terms {
		if strings.Contains(norm, term) {
			return true
		}
	}
	return false
}

var stripper = strings.NewReplacer(" ", "", ",", "")

func normalize(s string) string {
	return stripper.Replace(strings.ToLower(s))
}
