package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

type ForecastView struct {
	Series Chart                  `json:"series"`
	Min    *time.Time             `json:"min"`
	Max    *time.Time             `json:"max"`
	Start  *time.Time             `json:"start"`
	End    *time.Time             `json:"end"`
	Table  []models.ForecastPoint `json:"table"`
}

// Forecast serves the full forecast series and the table for a date range,
// which defaults to the whole series.
func (h *ViewHandler) Forecast(c *gin.Context) {
	h.render(c, ViewForecast, h.buildForecast)
}

func (h *ViewHandler) buildForecast(c *gin.Context, ts *models.TableSet) (ViewResponse, error) {
	if err := workbook.RequireColumns(ts, models.SheetForecast); err != nil {
		return ViewResponse{}, err
	}

	view := ForecastView{
		Series: Chart{
			Kind: "line", Title: "Forecast de 6 meses de proporción de viajes vacíos",
			XField: "date", YField: "predicted_ratio", XLabel: "Fecha", YLabel: "Proporción estimada de viajes vacíos",
			Points: nonNilForecast(ts.Forecast),
		},
		Table: []models.ForecastPoint{},
	}

	first, last, ok := analytics.Bounds(ts.Forecast)
	if !ok {
		return ViewResponse{State: StateEmpty, Message: "El pronóstico no tiene fechas válidas.", Data: view}, nil
	}
	start, end, err := ParseDateRange(c, first, last)
	if err != nil {
		return ViewResponse{}, err
	}
	view.Min, view.Max = &first, &last
	view.Start, view.End = &start, &end
	view.Table = analytics.FilterRange(ts.Forecast, start, end)

	resp := ViewResponse{Data: view}
	if len(view.Table) == 0 {
		resp.State = StateEmpty
		resp.Message = "No hay pronósticos en el rango seleccionado."
	}
	return resp, nil
}

func nonNilForecast(points []models.ForecastPoint) []models.ForecastPoint {
	if points == nil {
		return []models.ForecastPoint{}
	}
	return points
}
