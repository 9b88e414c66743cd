package handlers

import (
	"github.com/gin-gonic/gin"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

type monthPercent struct {
	Month   string  `json:"month"`
	Percent float64 `json:"percent"`
}

type FleetView struct {
	KPIs           []KPI                   `json:"kpis"`
	Summary        analytics.FleetSummary  `json:"summary"`
	EmptyThreshold *float64                `json:"empty_threshold_kg"`
	Months         []string                `json:"months"`
	SelectedMonths []string                `json:"selected_months"`
	MonthlyEmpty   Chart                   `json:"monthly_empty"`
	Statuses       []analytics.StatusCount `json:"statuses"`
	StatusChart    Chart                   `json:"status_chart"`
	Vehicles       []string                `json:"vehicles"`
	Vehicle        string                  `json:"vehicle"`
	Timeline       Chart                   `json:"timeline"`
}

// Fleet serves the current fleet state: KPI tiles, the monthly empty-trip
// ratio, status distribution and one vehicle's load timeline.
func (h *ViewHandler) Fleet(c *gin.Context) {
	h.render(c, ViewFleet, h.buildFleet)
}

func (h *ViewHandler) buildFleet(c *gin.Context, ts *models.TableSet) (ViewResponse, error) {
	if err := workbook.RequireColumns(ts, models.SheetTrips); err != nil {
		return ViewResponse{}, err
	}
	selected, err := ParseMonths(c)
	if err != nil {
		return ViewResponse{}, err
	}

	window := analytics.DateWindow{Start: h.cfg.WindowStart, End: h.cfg.WindowEnd}
	windowed := analytics.InWindow(ts.Trips, window)
	months := analytics.Months(windowed)
	if selected == nil {
		selected = months
	}

	summary := analytics.Summarize(ts.Trips)
	ratios := analytics.MonthlyEmptyRatio(ts.Trips, window, selected)
	series := make([]monthPercent, 0, len(ratios))
	for _, r := range ratios {
		series = append(series, monthPercent{Month: r.Month, Percent: percent(r.Ratio)})
	}
	statuses := analytics.StatusCounts(analytics.SelectMonths(windowed, selected))

	vehicles := analytics.Vehicles(windowed)
	vehicle := c.Query("vehicle")
	if vehicle == "" && len(vehicles) > 0 {
		vehicle = vehicles[0]
	}
	timeline := analytics.VehicleTimeline(windowed, vehicle)
	if timeline == nil {
		timeline = []analytics.TimelinePoint{}
	}

	view := FleetView{
		KPIs: []KPI{
			{Label: "Rutas activas", Value: summary.ActiveRoutes},
			{Label: "Unidades activas", Value: summary.ActiveVehicles},
			{Label: "Total de viajes", Value: summary.TotalTrips},
			{Label: "Viajes vacíos", Value: summary.EmptyTrips},
		},
		Summary:        summary,
		EmptyThreshold: ts.EmptyThreshold,
		Months:         nonNil(months),
		SelectedMonths: nonNil(selected),
		MonthlyEmpty: Chart{
			Kind: "line", Title: "Proporción mensual de viajes vacíos (%)",
			XField: "month", YField: "percent", XLabel: "Mes", YLabel: "Proporción (%)",
			Points: series,
		},
		Statuses: statuses,
		StatusChart: Chart{
			Kind: "bar", Title: "Distribución de estatus",
			XField: "status", YField: "count", YLabel: "Viajes",
			Points: nonNilStatus(statuses),
		},
		Vehicles: nonNil(vehicles),
		Vehicle:  vehicle,
		Timeline: Chart{
			Kind: "scatter", Title: "Viajes y carga transportada de la unidad " + vehicle,
			XField: "date", YField: "weight_kg", XLabel: "Fecha del viaje", YLabel: "Peso transportado (kg)",
			Points: timeline,
		},
	}

	resp := ViewResponse{Data: view}
	if len(windowed) == 0 {
		resp.State = StateEmpty
		resp.Message = "No hay viajes dentro del periodo analizado."
	}
	return resp, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilStatus(s []analytics.StatusCount) []analytics.StatusCount {
	if s == nil {
		return []analytics.StatusCount{}
	}
	return s
}
