package analytics

import (
	"fmt"
	"sort"

	"fleet-analytics-api/models"
)

// JoinMode selects how current and optimal route risks are combined.
type JoinMode string

const (
	// InnerJoin keeps only routes present in both the risk and assignment tables.
	InnerJoin JoinMode = "inner"
	// LeftJoin keeps every route the optimizer proposes, scored or not.
	LeftJoin JoinMode = "left"
)

// ParseJoinMode maps a configuration value to a JoinMode.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(s) {
	case InnerJoin, LeftJoin:
		return JoinMode(s), nil
	case "":
		return InnerJoin, nil
	}
	return "", fmt.Errorf("unknown join mode %q", s)
}

// Compare joins per-route mean risk from the risk model (current state) with
// the per-route mean of the optimizer's candidates (optimal state). Results
// are ordered by route.
func Compare(risk []models.RiskEntry, assignments []models.AssignmentEntry, mode JoinMode) []models.RouteComparison {
	current := make(map[string]float64)
	for _, r := range RouteMeanRisk(risk) {
		current[r.Route] = r.Probability
	}

	var out []models.RouteComparison
	for _, opt := range assignmentMeans(assignments) {
		cur, scored := current[opt.Route]
		if !scored && mode != LeftJoin {
			continue
		}
		c := models.RouteComparison{Route: opt.Route, OptimalRisk: opt.Probability}
		if scored {
			imp := (cur - opt.Probability) * 100
			c.CurrentRisk = &cur
			c.ImprovementPP = &imp
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Search returns the comparisons whose route contains query, ignoring case.
func Search(comparisons []models.RouteComparison, query string) ([]models.RouteComparison, error) {
	if blankQuery(query) {
		return nil, ErrEmptyQuery
	}
	m := NewMatcher(query)
	var out []models.RouteComparison
	for _, c := range comparisons {
		if m.Match(c.Route) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrNoMatch)
	}
	return out, nil
}

// MeanImprovement averages improvement_pp across the joined routes. ok is
// false when no route has both a current and an optimal risk.
func MeanImprovement(comparisons []models.RouteComparison) (float64, bool) {
	values := make([]*float64, 0, len(comparisons))
	for _, c := range comparisons {
		values = append(values, c.ImprovementPP)
	}
	return mean(values)
}
