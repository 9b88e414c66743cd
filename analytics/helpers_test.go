package analytics

import (
	"time"

	"fleet-analytics-api/models"
)

func fp(v float64) *float64 { return &v }

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func trip(route, vehicle, date string, weight float64, status string) models.Trip {
	return models.Trip{Route: route, Vehicle: vehicle, DepartureDate: day(date), WeightKg: fp(weight), Status: status}
}

func countEmpty(trips []models.Trip) int {
	n := 0
	for _, t := range trips {
		if t.IsEmpty {
			n++
		}
	}
	return n
}
