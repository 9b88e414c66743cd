package workbook

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleet-analytics-api/models"
)

type sheetRows map[string][][]interface{}

func validRows() sheetRows {
	return sheetRows{
		models.SheetTrips: {
			{"Ruta", " Tractocamio\u0301n ", "Fecha Salida", "Peso Kgs", "Estatus de Viaje", "Cliente"},
			{"RouteA", "V1", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), 12500.5, "Cerrado", "BEPENSA"},
			{"RouteA", "V2", "2025-03-05", "n/a", "Cancelado"},
			{},
			{"RouteB", "V1", "mañana", 800, "Cerrado"},
		},
		models.SheetAssignments: {
			{"Ruta", "Tractocamión", "Prob_vacio"},
			{"RouteA", "V2", 0.1},
		},
		models.SheetRisk: {
			{"Ruta", "Tractocamión", "Prob_vacio"},
			{"RouteA", "V1", 0.8},
			{"RouteA", "V2", 0.3},
		},
		models.SheetForecast: {
			{"Fecha", "pronostico"},
			{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0.12},
			{"", 0.2},
		},
	}
}

func buildWorkbook(t *testing.T, rows sheetRows, order ...string) *bytes.Buffer {
	t.Helper()
	if len(order) == 0 {
		order = models.RequiredSheets
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParse(t *testing.T) {
	ts, err := Parse(buildWorkbook(t, validRows()))
	require.NoError(t, err)

	require.Len(t, ts.Trips, 3)
	first := ts.Trips[0]
	assert.Equal(t, "RouteA", first.Route)
	assert.Equal(t, "V1", first.Vehicle)
	require.NotNil(t, first.DepartureDate)
	assert.Equal(t, "2025-03-04", first.DepartureDate.Format("2006-01-02"))
	require.NotNil(t, first.WeightKg)
	assert.InDelta(t, 12500.5, *first.WeightKg, 1e-9)

	assert.Equal(t, "2025-03-05", ts.Trips[1].DepartureDate.Format("2006-01-02"))
	assert.Nil(t, ts.Trips[1].WeightKg)
	assert.Nil(t, ts.Trips[2].DepartureDate)
	assert.False(t, first.IsEmpty)

	assert.Equal(t, []string{"Ruta", "Tractocamión", "Fecha Salida", "Peso Kgs", "Estatus de Viaje", "Cliente"}, ts.Columns[models.SheetTrips])

	require.Len(t, ts.Assignments, 1)
	assert.InDelta(t, 0.1, *ts.Assignments[0].EmptyProbability, 1e-9)
	require.Len(t, ts.Risk, 2)

	require.Len(t, ts.Forecast, 2)
	assert.Equal(t, "2026-01-01", ts.Forecast[0].Date.Format("2006-01-02"))
	assert.Nil(t, ts.Forecast[1].Date)
	assert.False(t, ts.LoadedAt.IsZero())
}

func TestParseSheetOrderDoesNotMatter(t *testing.T) {
	order := []string{models.SheetForecast, models.SheetRisk, models.SheetTrips, models.SheetAssignments}
	ts, err := Parse(buildWorkbook(t, validRows(), order...))
	require.NoError(t, err)
	assert.Len(t, ts.Trips, 3)
}

func TestParseMissingSheet(t *testing.T) {
	order := []string{models.SheetTrips, models.SheetAssignments, models.SheetForecast}
	_, err := Parse(buildWorkbook(t, validRows(), order...))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, models.SheetRisk, schemaErr.Sheet)
	assert.Empty(t, schemaErr.Column)
	assert.Contains(t, err.Error(), "Riesgo")
}

func TestParseSheetNamesAreCaseSensitive(t *testing.T) {
	rows := validRows()
	rows["viajes"] = rows[models.SheetTrips]
	order := []string{"viajes", models.SheetAssignments, models.SheetRisk, models.SheetForecast}
	_, err := Parse(buildWorkbook(t, rows, order...))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, models.SheetTrips, schemaErr.Sheet)
}

func TestParseMissingColumnIsRecorded(t *testing.T) {
	rows := validRows()
	rows[models.SheetRisk] = [][]interface{}{
		{"Ruta", "Tractocamión"},
		{"RouteA", "V1"},
	}
	ts, err := Parse(buildWorkbook(t, rows))
	require.NoError(t, err)

	assert.Equal(t, []string{models.ColProbability}, ts.MissingColumns(models.SheetRisk))
	assert.Nil(t, ts.Risk[0].EmptyProbability)

	err = RequireColumns(ts, models.SheetRisk)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, models.ColProbability, schemaErr.Column)
	assert.NoError(t, RequireColumns(ts, models.SheetTrips))
}

func TestParseEmptySheet(t *testing.T) {
	rows := validRows()
	rows[models.SheetForecast] = nil
	ts, err := Parse(buildWorkbook(t, rows))
	require.NoError(t, err)
	assert.Empty(t, ts.Forecast)
	assert.Equal(t, []string{models.ColDate, models.ColForecast}, ts.MissingColumns(models.SheetForecast))
}

func TestParseRejectsNonWorkbook(t *testing.T) {
	_, err := Parse(strings.NewReader("Ruta,Tractocamión\nRouteA,V1\n"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45658", "2025-01-01"},
		{"45658.75", "2025-01-01"},
		{"2025-02-03", "2025-02-03"},
		{"2025-02-03 08:15:00", "2025-02-03"},
		{"2025-03-01 08:30", "2025-03-01"},
		{"02/03/2025", "2025-02-03"},
		{"  2025/02/03 ", "2025-02-03"},
		{"", ""},
		{"sin fecha", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in, false)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Nil(t, parseNumber(""))
	assert.Nil(t, parseNumber("NaN"))
	assert.Nil(t, parseNumber("12 kg"))
	require.NotNil(t, parseNumber(" 0.25 "))
	assert.Equal(t, 0.25, *parseNumber(" 0.25 "))
}
