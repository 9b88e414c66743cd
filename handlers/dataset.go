package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
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

// DatasetHandler accepts workbook uploads and describes the active dataset.
type DatasetHandler struct {
	store    *services.SessionStore
	events   *services.EventBus
	maxBytes int64
	quantile float64
	preview  int
	log      *zap.SugaredLogger
}

func NewDatasetHandler(store *services.SessionStore, events *services.EventBus, server config.ServerConfig, analyticsCfg config.AnalyticsConfig, log *zap.SugaredLogger) *DatasetHandler {
	return &DatasetHandler{
		store:    store,
		events:   events,
		maxBytes: int64(server.MaxUploadMB) << 20,
		quantile: analyticsCfg.EmptyQuantile,
		preview:  analyticsCfg.PreviewRows,
		log:      log,
	}
}

type DatasetSummary struct {
	Origin         models.Origin       `json:"origin"`
	LoadedAt       time.Time           `json:"loaded_at"`
	Records        int                 `json:"records"`
	Variables      int                 `json:"variables"`
	Assignments    int                 `json:"assignments"`
	RiskRows       int                 `json:"risk_rows"`
	ForecastPoints int                 `json:"forecast_points"`
	EmptyThreshold *float64            `json:"empty_threshold_kg"`
	Missing        map[string][]string `json:"missing_columns,omitempty"`
	Preview        []models.Trip       `json:"preview"`
}

func (h *DatasetHandler) summarize(ts *models.TableSet, origin models.Origin) DatasetSummary {
	s := DatasetSummary{
		Origin:         origin,
		LoadedAt:       ts.LoadedAt,
		Records:        len(ts.Trips),
		Variables:      len(ts.Columns[models.SheetTrips]),
		Assignments:    len(ts.Assignments),
		RiskRows:       len(ts.Risk),
		ForecastPoints: len(ts.Forecast),
		EmptyThreshold: ts.EmptyThreshold,
		Preview:        ts.Trips[:min(h.preview, len(ts.Trips))],
	}
	if s.Preview == nil {
		s.Preview = []models.Trip{}
	}
	for _, sheet := range models.RequiredSheets {
		if missing := ts.MissingColumns(sheet); len(missing) > 0 {
			if s.Missing == nil {
				s.Missing = make(map[string][]string)
			}
			s.Missing[sheet] = missing
		}
	}
	return s
}

// Upload parses a workbook and makes it the session's active dataset. A
// rejected upload leaves the previous dataset in place.
func (h *DatasetHandler) Upload(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.Uploads.WithLabelValues("too_large").Inc()
			h.reject(c, http.StatusRequestEntityTooLarge, "El archivo excede el tamaño permitido.")
			return
		}
		metrics.Uploads.WithLabelValues("bad_request").Inc()
		h.reject(c, http.StatusBadRequest, "Adjunta un archivo .xlsx en el campo 'file'.")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		metrics.Uploads.WithLabelValues("bad_request").Inc()
		h.reject(c, http.StatusBadRequest, "Solo se aceptan archivos .xlsx.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		metrics.Uploads.WithLabelValues("bad_request").Inc()
		h.reject(c, http.StatusBadRequest, "No se pudo abrir el archivo.")
		return
	}
	defer f.Close()

	ts, err := workbook.Parse(f)
	if err != nil {
		var schemaErr *workbook.SchemaError
		result := "parse_error"
		if errors.As(err, &schemaErr) {
			result = "schema_error"
		}
		metrics.Uploads.WithLabelValues(result).Inc()
		h.log.Infow("upload rejected", "session", sessionID, "file", fh.Filename, "error", err)
		status, resp := errorResponse(err)
		resp.View = ViewUpload
		c.JSON(status, resp)
		return
	}
	analytics.Prepare(ts, h.quantile)

	if err := h.store.Put(c.Request.Context(), sessionID, ts); err != nil {
		metrics.Uploads.WithLabelValues("store_error").Inc()
		h.log.Errorw("store upload", "session", sessionID, "error", err)
		h.reject(c, http.StatusInternalServerError, "No se pudo guardar el archivo.")
		return
	}
	metrics.Uploads.WithLabelValues("ok").Inc()
	h.log.Infow("dataset uploaded", "session", sessionID, "file", fh.Filename, "trips", len(ts.Trips))
	h.events.Publish(c.Request.Context(), services.Event{
		Type:      services.EventDatasetUploaded,
		Scope:     services.ScopeSession,
		SessionID: sessionID,
		LoadedAt:  ts.LoadedAt,
		Trips:     len(ts.Trips),
	})

	c.JSON(http.StatusOK, ViewResponse{
		View:    ViewUpload,
		State:   StateOK,
		Message: "Archivo cargado correctamente",
		Data:    h.summarize(ts, models.OriginUpload),
	})
}

// Summary describes the dataset the session's views currently read.
func (h *DatasetHandler) Summary(c *gin.Context) {
	ts, origin, err := h.store.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		status, resp := errorResponse(err)
		resp.View = ViewUpload
		c.JSON(status, resp)
		return
	}
	c.Header("X-Dataset-Origin", string(origin))
	c.JSON(http.StatusOK, ViewResponse{View: ViewUpload, State: StateOK, Data: h.summarize(ts, origin)})
}

func (h *DatasetHandler) reject(c *gin.Context, status int, msg string) {
	c.JSON(status, ViewResponse{View: ViewUpload, State: StateError, Message: msg})
}
