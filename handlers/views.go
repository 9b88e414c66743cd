package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/config"
	"fleet-analytics-api/metrics"
	"fleet-analytics-api/middleware"
	"fleet-analytics-api/models"
	"fleet-analytics-api/services"
	"fleet-analytics-api/workbook"
)

type ViewState string

const (
	StateOK     ViewState = "ok"
	StateEmpty  ViewState = "empty"
	StatePrompt ViewState = "prompt"
	StateError  ViewState = "error"
)

const (
	ViewUpload     = "upload"
	ViewFleet      = "fleet"
	ViewRisk       = "risk"
	ViewForecast   = "forecast"
	ViewAssignment = "assignment"
	ViewImpact     = "impact"
)

// ViewResponse is the envelope of every view. Data may be present in the
// empty and prompt states, for the sections that do not depend on the search.
type ViewResponse struct {
	View    string      `json:"view"`
	State   ViewState   `json:"state"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type MenuItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

var menu = []MenuItem{
	{ID: ViewUpload, Title: "Carga de Datos", Path: "/api/v1/dataset"},
	{ID: ViewFleet, Title: "Estado Actual de la Flota", Path: "/api/v1/views/fleet"},
	{ID: ViewRisk, Title: "Riesgo de Viajes Vacíos", Path: "/api/v1/views/risk"},
	{ID: ViewForecast, Title: "Pronóstico de Viajes Vacíos", Path: "/api/v1/views/forecast"},
	{ID: ViewAssignment, Title: "Asignación Óptima", Path: "/api/v1/views/assignment"},
	{ID: ViewImpact, Title: "Impacto Operativo", Path: "/api/v1/views/impact"},
}

func Menu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": menu})
}

// KPI is one metric tile.
type KPI struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
	Unit  string      `json:"unit,omitempty"`
}

// Chart describes a figure for the front end to draw. Points holds the rows
// and XField/YField name the row fields on each axis.
type Chart struct {
	Kind   string      `json:"kind"`
	Title  string      `json:"title"`
	XField string      `json:"x_field,omitempty"`
	YField string      `json:"y_field,omitempty"`
	XLabel string      `json:"x_label,omitempty"`
	YLabel string      `json:"y_label,omitempty"`
	Points interface{} `json:"points"`
}

// ViewHandler serves the five analytic views from the session's active set.
// Views are recomputed on every request.
type ViewHandler struct {
	store   *services.SessionStore
	cfg     config.AnalyticsConfig
	factors []models.RiskFactor
	join    analytics.JoinMode
	log     *zap.SugaredLogger
}

func NewViewHandler(store *services.SessionStore, cfg config.AnalyticsConfig, factors []models.RiskFactor, log *zap.SugaredLogger) (*ViewHandler, error) {
	join, err := analytics.ParseJoinMode(cfg.ImpactJoin)
	if err != nil {
		return nil, err
	}
	return &ViewHandler{store: store, cfg: cfg, factors: factors, join: join, log: log}, nil
}

type buildFunc func(c *gin.Context, ts *models.TableSet) (ViewResponse, error)

func (h *ViewHandler) render(c *gin.Context, view string, build buildFunc) {
	start := time.Now()
	status := http.StatusOK

	ts, origin, err := h.store.Get(c.Request.Context(), middleware.SessionID(c))
	var resp ViewResponse
	if err == nil {
		c.Header("X-Dataset-Origin", string(origin))
		resp, err = build(c, ts)
	}
	if err != nil {
		status, resp = errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Errorw("view failed", "view", view, "error", err)
		}
		_ = c.Error(err)
	}
	resp.View = view
	if resp.State == "" {
		resp.State = StateOK
	}

	metrics.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	metrics.ViewRenders.WithLabelValues(view, string(resp.State)).Inc()
	c.JSON(status, resp)
}

// Messages shown for the informational states.
const (
	msgNotFound      = "No hay datos para esta combinación."
	msgNoMatch       = "No se encontró ninguna ruta que coincida con la búsqueda."
	msgEmptyQuery    = "Ingresa una ruta para consultar."
	msgNoDefault     = "No hay datos disponibles. Carga un archivo Viajes.xlsx."
	msgInternalError = "Ocurrió un error al preparar la vista."
)

// errorResponse classifies err into an HTTP status and a view state.
// Lookup outcomes are not failures: they render as empty or prompt with 200.
func errorResponse(err error) (int, ViewResponse) {
	var schemaErr *workbook.SchemaError
	var pErr *paramError
	switch {
	case errors.Is(err, analytics.ErrEmptyQuery):
		return http.StatusOK, ViewResponse{State: StatePrompt, Message: msgEmptyQuery}
	case errors.Is(err, analytics.ErrNoMatch):
		return http.StatusOK, ViewResponse{State: StateEmpty, Message: msgNoMatch}
	case errors.Is(err, analytics.ErrNotFound):
		return http.StatusOK, ViewResponse{State: StateEmpty, Message: msgNotFound}
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, ViewResponse{State: StateError, Message: schemaMessage(schemaErr)}
	case errors.Is(err, workbook.ErrParse):
		return http.StatusBadRequest, ViewResponse{State: StateError, Message: "Error al leer el archivo: " + err.Error()}
	case errors.As(err, &pErr):
		return http.StatusBadRequest, ViewResponse{State: StateError, Message: pErr.Error()}
	case errors.Is(err, services.ErrDefaultUnavailable):
		return http.StatusServiceUnavailable, ViewResponse{State: StateError, Message: msgNoDefault}
	}
	return http.StatusInternalServerError, ViewResponse{State: StateError, Message: msgInternalError}
}

func schemaMessage(e *workbook.SchemaError) string {
	if e.Column == "" {
		return fmt.Sprintf("El archivo no contiene la hoja '%s'.", e.Sheet)
	}
	return fmt.Sprintf("La hoja '%s' debe contener: %s.", e.Sheet, strings.Join(models.RequiredColumns[e.Sheet], ", "))
}

// softState turns a lookup outcome into the state of a view that still
// renders its other sections. ok is false for real failures.
func softState(err error) (ViewState, string, bool) {
	status, resp := errorResponse(err)
	if status != http.StatusOK {
		return "", "", false
	}
	return resp.State, resp.Message, true
}

func percent(p float64) float64 {
	return p * 100
}
