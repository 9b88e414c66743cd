package analytics

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Matcher performs case-insensitive substring matching for user searches.
// Grouping and joins never use it: they compare identifiers exactly.
// A Matcher holds a stateful caser and must stay on one goroutine.
type Matcher struct {
	caser  cases.Caser
	needle string
}

func NewMatcher(query string) *Matcher {
	m := &Matcher{caser: cases.Fold()}
	m.needle = m.fold(strings.TrimSpace(query))
	return m
}

func (m *Matcher) Match(s string) bool {
	return strings.Contains(m.fold(s), m.needle)
}

func (m *Matcher) fold(s string) string {
	return m.caser.String(norm.NFC.String(s))
}

// blankQuery reports whether a search should short-circuit to the prompt state.
func blankQuery(q string) bool {
	return strings.TrimSpace(q) == ""
}
