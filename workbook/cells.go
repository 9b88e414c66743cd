package workbook

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// Text layouts accepted for date cells that were not stored as serial numbers.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"02-Jan-2006",
}

func normalizeHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(h))
}

// header maps normalized column names to their index. The first
// occurrence wins when a name repeats.
type header map[string]int

func newHeader(row []string) (header, []string) {
	h := make(header, len(row))
	names := make([]string, 0, len(row))
	for i, cell := range row {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		if _, dup := h[name]; dup {
			continue
		}
		h[name] = i
		names = append(names, name)
	}
	return h, names
}

// text returns the cell under column, or "" when the column or cell is absent.
func (h header) text(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (h header) number(row []string, column string) *float64 {
	return parseNumber(h.text(row, column))
}

func (h header) date(row []string, column string, date1904 bool) *time.Time {
	return parseDate(h.text(row, column), date1904)
}

func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseDate accepts Excel serial numbers and a few text layouts.
// Anything else yields nil, never an error.
func parseDate(s string, date1904 bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
