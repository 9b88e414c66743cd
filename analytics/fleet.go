package analytics

import (
	"sort"
	"time"

	"fleet-analytics-api/models"
)

// DefaultEmptyQuantile is the weight quantile below which a trip counts as empty.
const DefaultEmptyQuantile = 0.10

type MonthRatio struct {
	Month string  `json:"month"`
	Ratio float64 `json:"ratio"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type TimelinePoint struct {
	Date     *time.Time `json:"date"`
	WeightKg *float64   `json:"weight_kg"`
	Route    string     `json:"route"`
}

type FleetSummary struct {
	ActiveRoutes   int `json:"active_routes"`
	ActiveVehicles int `json:"active_vehicles"`
	TotalTrips     int `json:"total_trips"`
	EmptyTrips     int `json:"empty_trips"`
}

// FlagEmpty returns a copy of trips with IsEmpty set against one threshold
// computed over the whole set. A weight equal to the threshold is not empty,
// and trips without a weight are never flagged. The threshold is nil when no
// trip has a weight.
func FlagEmpty(trips []models.Trip, quantile float64) ([]models.Trip, *float64) {
	weights := make([]float64, 0, len(trips))
	for _, t := range trips {
		if t.WeightKg != nil {
			weights = append(weights, *t.WeightKg)
		}
	}

	out := make([]models.Trip, len(trips))
	copy(out, trips)

	threshold, ok := Quantile(weights, quantile)
	if !ok {
		for i := range out {
			out[i].IsEmpty = false
		}
		return out, nil
	}
	for i := range out {
		out[i].IsEmpty = out[i].WeightKg != nil && *out[i].WeightKg < threshold
	}
	return out, &threshold
}

// InWindow keeps the trips whose departure date falls inside w.
func InWindow(trips []models.Trip, w DateWindow) []models.Trip {
	var out []models.Trip
	for _, t := range trips {
		if t.DepartureDate != nil && w.Contains(*t.DepartureDate) {
			out = append(out, t)
		}
	}
	return out
}

// Months lists the distinct departure months of trips, ascending.
func Months(trips []models.Trip) []string {
	seen := make(map[string]bool)
	var months []string
	for _, t := range trips {
		if t.DepartureDate == nil {
			continue
		}
		k := MonthKey(*t.DepartureDate)
		if !seen[k] {
			seen[k] = true
			months = append(months, k)
		}
	}
	sort.Strings(months)
	return months
}

// SelectMonths keeps the trips departing in one of months. A nil selection
// keeps every dated trip; an empty non-nil selection keeps none.
func SelectMonths(trips []models.Trip, months []string) []models.Trip {
	var want map[string]bool
	if months != nil {
		want = make(map[string]bool, len(months))
		for _, m := range months {
			want[m] = true
		}
	}
	var out []models.Trip
	for _, t := range trips {
		if t.DepartureDate == nil {
			continue
		}
		if want == nil || want[MonthKey(*t.DepartureDate)] {
			out = append(out, t)
		}
	}
	return out
}

// MonthlyEmptyRatio averages IsEmpty per departure month inside w, restricted
// to the selected months (nil selects all), ordered by month.
func MonthlyEmptyRatio(trips []models.Trip, w DateWindow, months []string) []MonthRatio {
	type acc struct{ empty, total int }
	groups := make(map[string]*acc)
	for _, t := range SelectMonths(InWindow(trips, w), months) {
		k := MonthKey(*t.DepartureDate)
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.total++
		if t.IsEmpty {
			a.empty++
		}
	}

	out := make([]MonthRatio, 0, len(groups))
	for k, a := range groups {
		out = append(out, MonthRatio{Month: k, Ratio: float64(a.empty) / float64(a.total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// StatusCounts is a frequency table of trip statuses, most frequent first.
// Ties keep first-appearance order and blank statuses are skipped.
func StatusCounts(trips []models.Trip) []StatusCount {
	idx := make(map[string]int)
	var out []StatusCount
	for _, t := range trips {
		if t.Status == "" {
			continue
		}
		i, ok := idx[t.Status]
		if !ok {
			i = len(out)
			idx[t.Status] = i
			out = append(out, StatusCount{Status: t.Status})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Vehicles lists distinct non-blank vehicle codes, sorted.
func Vehicles(trips []models.Trip) []string {
	return distinctSorted(len(trips), func(i int) string { return trips[i].Vehicle })
}

// VehicleTimeline returns every trip of vehicle ordered by departure date.
// Undated trips go last in input order.
func VehicleTimeline(trips []models.Trip, vehicle string) []TimelinePoint {
	var out []TimelinePoint
	for _, t := range trips {
		if t.Vehicle == vehicle {
			out = append(out, TimelinePoint{Date: t.DepartureDate, WeightKg: t.WeightKg, Route: t.Route})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
	return out
}

// Summarize computes the fleet KPI tiles.
func Summarize(trips []models.Trip) FleetSummary {
	routes := make(map[string]bool)
	vehicles := make(map[string]bool)
	s := FleetSummary{TotalTrips: len(trips)}
	for _, t := range trips {
		if t.Route != "" {
			routes[t.Route] = true
		}
		if t.Vehicle != "" {
			vehicles[t.Vehicle] = true
		}
		if t.IsEmpty {
			s.EmptyTrips++
		}
	}
	s.ActiveRoutes = len(routes)
	s.ActiveVehicles = len(vehicles)
	return s
}

func distinctSorted(n int, at func(i int) string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < n; i++ {
		v := at(i)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Prepare flags the trips of a freshly loaded set in place and stores the
// threshold on it. It runs once per load; views never recompute it.
func Prepare(ts *models.TableSet, quantile float64) {
	ts.Trips, ts.EmptyThreshold = FlagEmpty(ts.Trips, quantile)
}
