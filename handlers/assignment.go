package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

type AssignmentView struct {
	Query     string                   `json:"query"`
	Best      *models.AssignmentEntry  `json:"best"`
	Matches   []models.AssignmentEntry `json:"matches"`
	Table     []models.AssignmentEntry `json:"table"`
	Efficient Chart                    `json:"efficient"`
}

const msgAssignmentPrompt = "Para consultar su unidad recomendada y probabilidad de viaje vacío."

// Assignment serves the optimal assignment lookup. The full table and the
// most efficient combinations render whether or not a route was searched.
func (h *ViewHandler) Assignment(c *gin.Context) {
	h.render(c, ViewAssignment, h.buildAssignment)
}

func (h *ViewHandler) buildAssignment(c *gin.Context, ts *models.TableSet) (ViewResponse, error) {
	if err := workbook.RequireColumns(ts, models.SheetAssignments); err != nil {
		return ViewResponse{}, err
	}

	query := c.Query("q")
	view := AssignmentView{
		Query:   query,
		Matches: []models.AssignmentEntry{},
		Table:   nonNilAssignments(ts.Assignments),
		Efficient: Chart{
			Kind:   "hbar",
			Title:  fmt.Sprintf("Top %d combinaciones más eficientes", h.cfg.EfficientCombinations),
			XField: "empty_probability", YField: "route", XLabel: "Probabilidad de viaje vacío", YLabel: "Ruta",
			Points: analytics.MostEfficient(ts.Assignments, h.cfg.EfficientCombinations),
		},
	}
	resp := ViewResponse{Data: &view}

	best, matches, err := analytics.FindBest(ts.Assignments, query)
	if err != nil {
		state, msg, soft := softState(err)
		if !soft {
			return ViewResponse{}, err
		}
		if state == StatePrompt {
			msg = msgAssignmentPrompt
		}
		resp.State, resp.Message = state, msg
		return resp, nil
	}

	view.Best, view.Matches = best, matches
	if best == nil {
		resp.Message = "Las rutas encontradas no tienen probabilidad estimada."
		return resp, nil
	}
	resp.Message = fmt.Sprintf(
		"Para la ruta %s, el tractocamión con menor probabilidad de realizar un viaje en vacío es %s, con una probabilidad estimada de %.2f%%.",
		best.Route, best.Vehicle, percent(*best.EmptyProbability),
	)
	return resp, nil
}

func nonNilAssignments(rows []models.AssignmentEntry) []models.AssignmentEntry {
	if rows == nil {
		return []models.AssignmentEntry{}
	}
	return rows
}
