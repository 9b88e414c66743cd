package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fleet-analytics-api/middleware"
	"fleet-analytics-api/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// DatasetEvents streams dataset change notifications so open dashboards can
// refetch their view. A client sees default dataset reloads and the uploads
// of its own session.
func DatasetEvents(events *services.EventBus, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := middleware.SessionID(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warnw("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ch := events.Subscribe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				if !e.VisibleTo(sessionID) {
					continue
				}
				if err := conn.WriteJSON(e); err != nil {
					log.Debugw("ws write error", "error", err)
					return
				}
			}
		}
	}
}
