package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fleet-analytics-api/config"
)

// SetupCORS lets the dashboard front end call the API from its own origin.
// The API only serves reads and the workbook upload.
func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Dataset-Origin"},
		MaxAge:        12 * time.Hour,
	}

	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		base.AllowAllOrigins = true
		return cors.New(base)
	}
	base.AllowOrigins = origins
	base.AllowCredentials = true
	return cors.New(base)
}
