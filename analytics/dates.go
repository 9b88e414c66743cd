package analytics

import "time"

const monthLayout = "2006-01"

// DateWindow is an inclusive range compared at calendar-day granularity.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow bounds the monthly empty-trip series.
var DefaultWindow = DateWindow{
	Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
}

func (w DateWindow) Contains(t time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(w.Start)) && !d.After(dayOf(w.End))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t as an ISO year-month such as "2025-03".
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}
