package models

import "time"

type ForecastPoint struct {
	Date           *time.Time `gorm:"column:date" json:"date"`
	PredictedRatio *float64   `gorm:"column:predicted_ratio" json:"predicted_ratio"`
}

func (ForecastPoint) TableName() string { return "forecasts" }
