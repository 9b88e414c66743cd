package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

type riskBar struct {
	Category string  `json:"category"`
	Percent  float64 `json:"percent"`
}

type ImpactView struct {
	Query           string                   `json:"query"`
	Join            analytics.JoinMode       `json:"join"`
	MeanImprovement *float64                 `json:"mean_improvement_pp"`
	Routes          int                      `json:"routes"`
	Result          *models.RouteComparison  `json:"result"`
	Comparison      *Chart                   `json:"comparison"`
	Matches         []models.RouteComparison `json:"matches"`
}

const msgImpactPrompt = "Ingresa una ruta para visualizar su impacto operativo."

// Impact compares the current risk of a route with the risk under the optimal
// assignment. The first matching route is the headline result.
func (h *ViewHandler) Impact(c *gin.Context) {
	h.render(c, ViewImpact, h.buildImpact)
}

func (h *ViewHandler) buildImpact(c *gin.Context, ts *models.TableSet) (ViewResponse, error) {
	for _, sheet := range []string{models.SheetRisk, models.SheetAssignments} {
		if err := workbook.RequireColumns(ts, sheet); err != nil {
			return ViewResponse{}, err
		}
	}

	comparisons := analytics.Compare(ts.Risk, ts.Assignments, h.join)
	query := c.Query("q")
	view := ImpactView{
		Query:   query,
		Join:    h.join,
		Routes:  len(comparisons),
		Matches: []models.RouteComparison{},
	}
	if m, ok := analytics.MeanImprovement(comparisons); ok {
		view.MeanImprovement = &m
	}
	resp := ViewResponse{Data: &view}

	matches, err := analytics.Search(comparisons, query)
	if err != nil {
		state, msg, soft := softState(err)
		if !soft {
			return ViewResponse{}, err
		}
		if state == StatePrompt {
			msg = msgImpactPrompt
		}
		resp.State, resp.Message = state, msg
		return resp, nil
	}

	result := matches[0]
	view.Result = &result
	view.Matches = matches

	bars := []riskBar{}
	if result.CurrentRisk != nil {
		bars = append(bars, riskBar{Category: "Riesgo Actual", Percent: percent(*result.CurrentRisk)})
	}
	bars = append(bars, riskBar{Category: "Riesgo Óptimo", Percent: percent(result.OptimalRisk)})
	view.Comparison = &Chart{
		Kind: "hbar", Title: "Comparación de riesgo actual vs óptimo",
		XField: "percent", YField: "category", XLabel: "Probabilidad (%)",
		Points: bars,
	}

	if result.ImprovementPP == nil {
		resp.Message = fmt.Sprintf("La ruta %s no tiene riesgo actual estimado; riesgo óptimo recomendado %.2f%%.",
			result.Route, percent(result.OptimalRisk))
		return resp, nil
	}
	resp.Message = fmt.Sprintf("Ruta %s: riesgo actual %.2f%%, riesgo óptimo recomendado %.2f%%, mejora esperada %.2f puntos porcentuales.",
		result.Route, percent(*result.CurrentRisk), percent(result.OptimalRisk), *result.ImprovementPP)
	return resp, nil
}
