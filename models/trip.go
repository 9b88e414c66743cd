package models

import "time"

// Trip is one historical haul from the Viajes sheet. IsEmpty is derived at load time.
type Trip struct {
	Route         string     `gorm:"column:route" json:"route"`
	Vehicle       string     `gorm:"column:vehicle" json:"vehicle"`
	DepartureDate *time.Time `gorm:"column:departure_date" json:"departure_date"`
	WeightKg      *float64   `gorm:"column:weight_kg" json:"weight_kg"`
	Status        string     `gorm:"column:status" json:"status"`
	IsEmpty       bool       `gorm:"-" json:"is_empty"`
}

func (Trip) TableName() string { return "trips" }
