package models

// RouteComparison is derived per request and never stored. CurrentRisk and
// ImprovementPP are nil only for routes the risk model never scored, which
// can happen with the left join.
type RouteComparison struct {
	Route         string   `json:"route"`
	CurrentRisk   *float64 `json:"current_risk"`
	OptimalRisk   float64  `json:"optimal_risk"`
	ImprovementPP *float64 `json:"improvement_pp"`
}
