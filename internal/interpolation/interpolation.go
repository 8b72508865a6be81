package interpolation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Mapping stores the original token and the placeholder sent to the translator instead.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

type tokenMatch struct {
	start, end int
	value      string
}

// patterns detect markup and format tokens that must survive translation
// untouched. Rich text properties carry HTML, labels may carry placeholders.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9:-]*(?:\s[^<>]*)?/?>`),      // <b>, </div>, <br/>, <span style="...">
	regexp.MustCompile(`&(?:#[0-9]+|#x[0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`), // &amp;, &#160;, &#xA0;
	regexp.MustCompile(`\$\{[a-zA-Z_][a-zA-Z0-9_]*\}`),                     // ${value}
	regexp.MustCompile(`\{[0-9]+\}`),                                       // {0}, {1}
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfeEgGxXoq]`),                  // %d, %s, %.2f
	regexp.MustCompile(`%%`),
}

// Protect replaces markup and placeholders with {{var_N}} tokens.
// It returns the safe string and the mappings needed to restore it.
func Protect(text string) (string, []Mapping) {
	var matches []tokenMatch
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			matches = append(matches, tokenMatch{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if len(matches) == 0 {
		return text, nil
	}

	// Position first, longest first on ties.
	slices.SortFunc(matches, func(a, b tokenMatch) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return (b.end - b.start) - (a.end - a.start)
	})

	var kept []tokenMatch
	lastEnd := -1
	for _, m := range matches {
		if m.start >= lastEnd {
			kept = append(kept, m)
			lastEnd = m.end
		}
	}

	var sb strings.Builder
	mappings := make([]Mapping, 0, len(kept))
	prev := 0
	for i, m := range kept {
		placeholder := fmt.Sprintf("{{var_%d}}", i+1)
		sb.WriteString(text[prev:m.start])
		sb.WriteString(placeholder)
		prev = m.end
		mappings = append(mappings, Mapping{Original: m.value, Placeholder: placeholder, Index: i + 1})
	}
	sb.WriteString(text[prev:])

	return sb.String(), mappings
}

// Restore puts the original tokens back in place of their placeholders.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}

// Intact reports whether every placeholder of mappings is still present in translated.
func Intact(translated string, mappings []Mapping) bool {
	for _, m := range mappings {
		if !strings.Contains(translated, m.Placeholder) {
			return false
		}
	}
	return true
}
