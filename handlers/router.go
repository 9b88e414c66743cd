package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fleet-analytics-api/config"
	"fleet-analytics-api/middleware"
	"fleet-analytics-api/services"
)

type RouterDeps struct {
	Tokens  *services.TokenService
	Events  *services.EventBus
	Views   *ViewHandler
	Dataset *DatasetHandler
	CORS    config.CORSConfig
	Log     *zap.SugaredLogger
}

// NewRouter mounts every endpoint. Views accept anonymous requests unless an
// access key is configured; uploads always need a session.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log), middleware.SetupCORS(d.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Fleet Analytics API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	viewAuth := middleware.Session(d.Tokens, d.Tokens.KeyRequired())
	sessions := NewSessionHandler(d.Tokens)

	api := router.Group("/api/v1")
	api.POST("/sessions", sessions.Open)
	api.GET("/views", Menu)
	api.POST("/dataset", middleware.Session(d.Tokens, true), d.Dataset.Upload)
	api.GET("/dataset", viewAuth, d.Dataset.Summary)
	api.GET("/ws", viewAuth, DatasetEvents(d.Events, d.Log))

	views := api.Group("/views", viewAuth)
	views.GET("/fleet", d.Views.Fleet)
	views.GET("/risk", d.Views.Risk)
	views.GET("/forecast", d.Views.Forecast)
	views.GET("/assignment", d.Views.Assignment)
	views.GET("/impact", d.Views.Impact)

	return router
}
