package analytics

import (
	"time"

	"fleet-analytics-api/models"
)

// FilterRange keeps the points dated within [start, end], compared by
// calendar day, in input order. Undated points are dropped.
func FilterRange(points []models.ForecastPoint, start, end time.Time) []models.ForecastPoint {
	w := DateWindow{Start: start, End: end}
	out := []models.ForecastPoint{}
	for _, p := range points {
		if p.Date != nil && w.Contains(*p.Date) {
			out = append(out, p)
		}
	}
	return out
}

// Bounds returns the earliest and latest forecast dates.
func Bounds(points []models.ForecastPoint) (start, end time.Time, ok bool) {
	for _, p := range points {
		if p.Date == nil {
			continue
		}
		if !ok || p.Date.Before(start) {
			start = *p.Date
		}
		if !ok || p.Date.After(end) {
			end = *p.Date
		}
		ok = true
	}
	return start, end, ok
}
