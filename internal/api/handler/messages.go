package handler

import (
	"net/http"
	"strings"

	"hackmate/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Initialize creates or updates every table.
func (h *Handler) Initialize(c *gin.Context) {
	if err := h.Storage.Migrate(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Info("database initialized")
	c.JSON(http.StatusOK, gin.H{"message": "Database initialized successfully"})
}

// GetMessages returns a team's history, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	teamID := strings.TrimSpace(c.Query("teamId"))
	if teamID == "" {
		badRequest(c, "teamId is required")
		return
	}

	messages, err := h.Storage.ListMessages(c.Request.Context(), teamID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type postMessageRequest struct {
	ID         string `json:"id"`
	TeamID     string `json:"teamId"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
}

// PostMessage persists a message through the relay, which also broadcasts it.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	msg, err := h.Hub.Submit(c.Request.Context(), models.TeamMessage{
		ID:         req.ID,
		TeamID:     req.TeamID,
		Sender:     req.Sender,
		SenderName: req.SenderName,
		Body:       req.Message,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Debug("message posted", zap.String("team_id", msg.TeamID), zap.String("message_id", msg.ID))
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetPresence lists the live participants of a team room.
func (h *Handler) GetPresence(c *gin.Context) {
	teamID := strings.TrimSpace(c.Query("teamId"))
	if teamID == "" {
		badRequest(c, "teamId is required")
		return
	}

	presence, err := h.Hub.Presence(c.Request.Context(), teamID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presence)
}
