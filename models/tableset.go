package models

import "time"

// Workbook sheet names.
const (
	SheetTrips       = "Viajes"
	SheetAssignments = "Asignacion"
	SheetRisk        = "Riesgo"
	SheetForecast    = "Forecast"
)

// Workbook column headers.
const (
	ColRoute       = "Ruta"
	ColVehicle     = "Tractocamión"
	ColDeparture   = "Fecha Salida"
	ColWeight      = "Peso Kgs"
	ColStatus      = "Estatus de Viaje"
	ColProbability = "Prob_vacio"
	ColDate        = "Fecha"
	ColForecast    = "pronostico"
)

// RequiredSheets lists every sheet a workbook must contain, in workbook order.
var RequiredSheets = []string{SheetTrips, SheetAssignments, SheetRisk, SheetForecast}

// RequiredColumns maps each sheet to the headers the views read from it.
var RequiredColumns = map[string][]string{
	SheetTrips:       {ColRoute, ColVehicle, ColDeparture, ColWeight, ColStatus},
	SheetAssignments: {ColRoute, ColVehicle, ColProbability},
	SheetRisk:        {ColRoute, ColVehicle, ColProbability},
	SheetForecast:    {ColDate, ColForecast},
}

type Origin string

const (
	OriginUpload  Origin = "upload"
	OriginDefault Origin = "default"
)

// TableSet is one loaded workbook. It is treated as immutable once built.
type TableSet struct {
	Trips          []Trip              `json:"trips"`
	Assignments    []AssignmentEntry   `json:"assignments"`
	Risk           []RiskEntry         `json:"risk"`
	Forecast       []ForecastPoint     `json:"forecast"`
	Columns        map[string][]string `json:"columns"`
	EmptyThreshold *float64            `json:"empty_threshold"`
	LoadedAt       time.Time           `json:"loaded_at"`
}

// MissingColumns returns the required headers of sheet that were absent at load.
func (t *TableSet) MissingColumns(sheet string) []string {
	present := make(map[string]bool, len(t.Columns[sheet]))
	for _, c := range t.Columns[sheet] {
		present[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns[sheet] {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
