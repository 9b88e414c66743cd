package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/services"
)

const sessionKey = "session_id"

// Session validates the bearer token (or the token query parameter, for
// websocket clients) and stores the session id on the context. With
// required=false a request without any token proceeds anonymously and sees
// the default dataset; a token that is present but invalid is always rejected.
func Session(tokens *services.TokenService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
				return
			}
			c.Next()
			return
		}
		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session token"})
			return
		}
		c.Set(sessionKey, claims.SessionID)
		c.Next()
	}
}

// SessionID returns the id set by Session, or "" for anonymous requests.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("token")
}
