package handlers

import (
	"fmt"
	"sort"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

type donutSlice struct {
	State       string  `json:"state"`
	Probability float64 `json:"probability"`
}

type PointRiskView struct {
	Route       string  `json:"route"`
	Vehicle     string  `json:"vehicle"`
	Probability float64 `json:"probability"`
	Donut       Chart   `json:"donut"`
}

type RiskView struct {
	Routes   []string       `json:"routes"`
	Route    string         `json:"route"`
	Vehicles []string       `json:"vehicles"`
	Vehicle  string         `json:"vehicle"`
	Point    *PointRiskView `json:"point"`
	TopN     int            `json:"top_n"`
	Riskiest Chart          `json:"riskiest"`
	Safest   Chart          `json:"safest"`
	Factors  Chart          `json:"factors"`
}

// Risk serves the empty-trip risk view: the point risk of one route and
// vehicle, the riskiest and safest routes, and the model's risk factors.
func (h *ViewHandler) Risk(c *gin.Context) {
	h.render(c, ViewRisk, h.buildRisk)
}

func (h *ViewHandler) buildRisk(c *gin.Context, ts *models.TableSet) (ViewResponse, error) {
	if err := workbook.RequireColumns(ts, models.SheetRisk); err != nil {
		return ViewResponse{}, err
	}
	n, err := ParseTopN(c, h.cfg)
	if err != nil {
		return ViewResponse{}, err
	}

	routes := analytics.Routes(ts.Risk)
	route := c.DefaultQuery("route", firstOf(routes))
	vehicles := analytics.VehiclesForRoute(ts.Risk, route)
	vehicle := c.DefaultQuery("vehicle", firstOf(vehicles))

	means := analytics.RouteMeanRisk(ts.Risk)
	view := RiskView{
		Routes:   nonNil(routes),
		Route:    route,
		Vehicles: nonNil(vehicles),
		Vehicle:  vehicle,
		TopN:     n,
		Riskiest: Chart{
			Kind: "hbar", Title: fmt.Sprintf("Top %d rutas más riesgosas", n),
			XField: "probability", YField: "route", XLabel: "Probabilidad de viaje vacío", YLabel: "Ruta",
			Points: analytics.TopN(means, n, false),
		},
		Safest: Chart{
			Kind: "hbar", Title: fmt.Sprintf("Top %d rutas más eficientes", n),
			XField: "probability", YField: "route", XLabel: "Probabilidad de viaje vacío", YLabel: "Ruta",
			Points: analytics.TopN(means, n, true),
		},
		Factors: Chart{
			Kind: "hbar", Title: "Variables más influyentes",
			XField: "importance", YField: "variable", XLabel: "Importancia", YLabel: "Variable",
			Points: sortedFactors(h.factors),
		},
	}
	resp := ViewResponse{Data: &view}

	p, err := analytics.PointRisk(ts.Risk, route, vehicle)
	if err != nil {
		state, msg, soft := softState(err)
		if !soft {
			return ViewResponse{}, err
		}
		resp.State, resp.Message = state, msg
		return resp, nil
	}
	view.Point = &PointRiskView{
		Route:       route,
		Vehicle:     vehicle,
		Probability: p,
		Donut: Chart{
			Kind:   "donut",
			Title:  fmt.Sprintf("Riesgo para %s con tractocamión %s", route, vehicle),
			XField: "state", YField: "probability",
			Points: []donutSlice{{State: "Vacío", Probability: p}, {State: "Con carga", Probability: 1 - p}},
		},
	}
	return resp, nil
}

// sortedFactors orders importances ascending, the order a horizontal bar
// chart draws bottom to top.
func sortedFactors(factors []models.RiskFactor) []models.RiskFactor {
	out := append([]models.RiskFactor{}, factors...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance < out[j].Importance })
	return out
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
