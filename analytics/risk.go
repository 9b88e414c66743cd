package analytics

import (
	"fmt"
	"sort"

	"fleet-analytics-api/models"
)

// RouteRisk is the mean empty-trip probability of one route.
type RouteRisk struct {
	Route       string  `json:"route"`
	Probability float64 `json:"probability"`
}

// RouteMeanRisk averages the probability of every route in order of first
// appearance. Blank routes and missing probabilities are ignored; a route
// without any probability is dropped.
func RouteMeanRisk(entries []models.RiskEntry) []RouteRisk {
	return routeMeans(len(entries), func(i int) (string, *float64) {
		return entries[i].Route, entries[i].EmptyProbability
	})
}

func assignmentMeans(entries []models.AssignmentEntry) []RouteRisk {
	return routeMeans(len(entries), func(i int) (string, *float64) {
		return entries[i].Route, entries[i].EmptyProbability
	})
}

func routeMeans(n int, at func(i int) (string, *float64)) []RouteRisk {
	idx := make(map[string]int)
	var routes []string
	var values [][]*float64
	for i := 0; i < n; i++ {
		route, p := at(i)
		if route == "" {
			continue
		}
		j, ok := idx[route]
		if !ok {
			j = len(routes)
			idx[route] = j
			routes = append(routes, route)
			values = append(values, nil)
		}
		values[j] = append(values[j], p)
	}

	out := make([]RouteRisk, 0, len(routes))
	for j, route := range routes {
		if m, ok := mean(values[j]); ok {
			out = append(out, RouteRisk{Route: route, Probability: m})
		}
	}
	return out
}

// TopN orders routes by probability and keeps the first n. ascending=false
// gives the riskiest routes first, ascending=true the most efficient. Equal
// probabilities keep their input order.
func TopN(means []RouteRisk, n int, ascending bool) []RouteRisk {
	if n <= 0 {
		return []RouteRisk{}
	}
	sorted := append([]RouteRisk(nil), means...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return sorted[i].Probability < sorted[j].Probability
		}
		return sorted[i].Probability > sorted[j].Probability
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// PointRisk is the mean probability over rows with exactly this route and vehicle.
func PointRisk(entries []models.RiskEntry, route, vehicle string) (float64, error) {
	var values []*float64
	for _, e := range entries {
		if e.Route == route && e.Vehicle == vehicle {
			values = append(values, e.EmptyProbability)
		}
	}
	m, ok := mean(values)
	if !ok {
		return 0, fmt.Errorf("route %q vehicle %q: %w", route, vehicle, ErrNotFound)
	}
	return m, nil
}

// Routes lists the distinct routes scored by the risk model, sorted.
func Routes(entries []models.RiskEntry) []string {
	return distinctSorted(len(entries), func(i int) string { return entries[i].Route })
}

// VehiclesForRoute lists the distinct vehicles scored on route, sorted.
func VehiclesForRoute(entries []models.RiskEntry, route string) []string {
	var onRoute []string
	for _, e := range entries {
		if e.Route == route {
			onRoute = append(onRoute, e.Vehicle)
		}
	}
	return distinctSorted(len(onRoute), func(i int) string { return onRoute[i] })
}
