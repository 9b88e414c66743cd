// Package workbook reads the fleet analytics xlsx workbook into a TableSet.
package workbook

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"fleet-analytics-api/models"
)

// Parse reads the four required sheets from r. Missing sheets fail with a
// *SchemaError; missing columns are only recorded in TableSet.Columns so
// that each view can decide whether it can render.
func Parse(r io.Reader) (*models.TableSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	ts := &models.TableSet{Columns: make(map[string][]string, len(models.RequiredSheets))}
	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}
	sheets := make(map[string][][]string, len(models.RequiredSheets))
	for _, name := range models.RequiredSheets {
		// Sheet names must match exactly, including case.
		if !present[name] {
			return nil, &SchemaError{Sheet: name}
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrParse, name, err)
		}
		sheets[name] = rows
	}

	var h header
	var body [][]string

	h, body = split(ts, models.SheetTrips, sheets)
	for _, row := range body {
		ts.Trips = append(ts.Trips, models.Trip{
			Route:         h.text(row, models.ColRoute),
			Vehicle:       h.text(row, models.ColVehicle),
			DepartureDate: h.date(row, models.ColDeparture, date1904),
			WeightKg:      h.number(row, models.ColWeight),
			Status:        h.text(row, models.ColStatus),
		})
	}

	h, body = split(ts, models.SheetAssignments, sheets)
	for _, row := range body {
		ts.Assignments = append(ts.Assignments, models.AssignmentEntry{
			Route:            h.text(row, models.ColRoute),
			Vehicle:          h.text(row, models.ColVehicle),
			EmptyProbability: h.number(row, models.ColProbability),
		})
	}

	h, body = split(ts, models.SheetRisk, sheets)
	for _, row := range body {
		ts.Risk = append(ts.Risk, models.RiskEntry{
			Route:            h.text(row, models.ColRoute),
			Vehicle:          h.text(row, models.ColVehicle),
			EmptyProbability: h.number(row, models.ColProbability),
		})
	}

	h, body = split(ts, models.SheetForecast, sheets)
	for _, row := range body {
		ts.Forecast = append(ts.Forecast, models.ForecastPoint{
			Date:           h.date(row, models.ColDate, date1904),
			PredictedRatio: h.number(row, models.ColForecast),
		})
	}

	ts.LoadedAt = time.Now().UTC()
	return ts, nil
}

// split separates the header row of a sheet from its data rows, records the
// sheet's columns and drops rows with no content.
func split(ts *models.TableSet, sheet string, sheets map[string][][]string) (header, [][]string) {
	rows := sheets[sheet]
	if len(rows) == 0 {
		ts.Columns[sheet] = []string{}
		return header{}, nil
	}
	h, names := newHeader(rows[0])
	ts.Columns[sheet] = names

	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if !blankRow(row) {
			body = append(body, row)
		}
	}
	return h, body
}

func blankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// RequireColumns reports the first required column of sheet that ts lacks.
func RequireColumns(ts *models.TableSet, sheet string) error {
	if missing := ts.MissingColumns(sheet); len(missing) > 0 {
		return &SchemaError{Sheet: sheet, Column: missing[0]}
	}
	return nil
}
