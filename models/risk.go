package models

// RiskEntry is the current-state model output for a route and vehicle pair.
type RiskEntry struct {
	Route            string   `gorm:"column:route" json:"route"`
	Vehicle          string   `gorm:"column:vehicle" json:"vehicle"`
	EmptyProbability *float64 `gorm:"column:empty_probability" json:"empty_probability"`
}

func (RiskEntry) TableName() string { return "risk_scores" }

// AssignmentEntry is one candidate pairing proposed by the optimizer.
type AssignmentEntry struct {
	Route            string   `gorm:"column:route" json:"route"`
	Vehicle          string   `gorm:"column:vehicle" json:"vehicle"`
	EmptyProbability *float64 `gorm:"column:empty_probability" json:"empty_probability"`
}

func (AssignmentEntry) TableName() string { return "assignments" }

// RiskFactor is one feature importance shown on the risk view.
type RiskFactor struct {
	Variable   string  `json:"variable" yaml:"variable"`
	Importance float64 `json:"importance" yaml:"importance"`
}
