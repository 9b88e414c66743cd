package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/config"
)

const dateLayout = "2006-01-02"

// paramError is a malformed query parameter; views answer it with 400.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("parámetro %s inválido: %q", e.name, e.value)
}

// ParseTopN reads "top" and clamps it into the configured slider bounds.
func ParseTopN(c *gin.Context, cfg config.AnalyticsConfig) (int, error) {
	raw := c.Query("top")
	if raw == "" {
		return cfg.TopNDefault, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: "top", value: raw}
	}
	if n < cfg.TopNMin {
		n = cfg.TopNMin
	}
	if n > cfg.TopNMax {
		n = cfg.TopNMax
	}
	return n, nil
}

// ParseMonths reads the repeated or comma separated "month" parameter.
// It returns nil when the parameter is absent (every month) and an empty
// slice when it is present but blank (no month).
func ParseMonths(c *gin.Context) ([]string, error) {
	values, ok := c.GetQueryArray("month")
	if !ok {
		return nil, nil
	}
	months := []string{}
	for _, v := range values {
		for _, m := range strings.Split(v, ",") {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			if _, err := time.Parse("2006-01", m); err != nil {
				return nil, &paramError{name: "month", value: m}
			}
			months = append(months, m)
		}
	}
	return months, nil
}

// ParseDateRange reads "start" and "end" as YYYY-MM-DD, defaulting each
// bound independently.
func ParseDateRange(c *gin.Context, defStart, defEnd time.Time) (time.Time, time.Time, error) {
	start, end := defStart, defEnd
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &paramError{name: "start", value: raw}
		}
		start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &paramError{name: "end", value: raw}
		}
		end = t
	}
	return start, end, nil
}
