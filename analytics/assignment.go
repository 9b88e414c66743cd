package analytics

import (
	"fmt"
	"sort"

	"fleet-analytics-api/models"
)

// DefaultEfficientCombinations is the size of the "most efficient" chart.
const DefaultEfficientCombinations = 20

// FindBest searches the optimizer's candidates by route substring and picks
// the one with the lowest empty probability. The first row wins on ties.
// best is nil when every match lacks a probability.
func FindBest(entries []models.AssignmentEntry, query string) (best *models.AssignmentEntry, matches []models.AssignmentEntry, err error) {
	if blankQuery(query) {
		return nil, nil, ErrEmptyQuery
	}
	m := NewMatcher(query)
	for _, e := range entries {
		if m.Match(e.Route) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("%q: %w", query, ErrNoMatch)
	}

	for i := range matches {
		p := matches[i].EmptyProbability
		if p == nil {
			continue
		}
		if best == nil || *p < *best.EmptyProbability {
			best = &matches[i]
		}
	}
	return best, matches, nil
}

// MostEfficient returns the n candidate pairings with the lowest probability.
// Rows without a probability sort last.
func MostEfficient(entries []models.AssignmentEntry, n int) []models.AssignmentEntry {
	sorted := append([]models.AssignmentEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].EmptyProbability, sorted[j].EmptyProbability
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a < *b
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
