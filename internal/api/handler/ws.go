package handler

import (
	"net/http"
	"strings"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeWebSocket upgrades to a relay connection.
//
// Identity comes from a valid bearer token when one is sent. Otherwise the
// userId and name query parameters are trusted as presented.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	name := strings.TrimSpace(c.Query("name"))

	if raw, ok := middleware.BearerToken(c.Request); ok && h.Tokens != nil {
		claims, err := h.Tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		userID = claims.Subject
		if claims.Name != "" {
			name = claims.Name
		}
	}
	if userID == "" {
		badRequest(c, "userId is required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, userID, name, h.cfg.Relay.SendBuffer, h.log)
	client.MaxMessageSize = h.cfg.Relay.MaxMessageBytes

	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run()
}
