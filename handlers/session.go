package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet-analytics-api/services"
)

type SessionHandler struct {
	tokens *services.TokenService
}

func NewSessionHandler(tokens *services.TokenService) *SessionHandler {
	return &SessionHandler{tokens: tokens}
}

type OpenSessionRequest struct {
	AccessKey string `json:"access_key"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Open starts a session. Uploads made with its token are visible only to it.
func (h *SessionHandler) Open(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, claims, err := h.tokens.Open(req.AccessKey)
	if errors.Is(err, services.ErrAccessDenied) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access key"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		Token:     token,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}
