package handler

import (
	"net/http"
	"strings"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type createIdeaRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Flowchart   string  `json:"flowchart"`
	UserID      *string `json:"user_id"`
}

// GetIdeas lists ideas newest first, optionally for one user.
func (h *Handler) GetIdeas(c *gin.Context) {
	ideas, err := h.Storage.ListIdeas(c.Request.Context(), strings.TrimSpace(c.Query("user_id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": ideas})
}

// CreateIdea stores an idea. user_id defaults to the caller.
func (h *Handler) CreateIdea(c *gin.Context) {
	var req createIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Flowchart) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields"})
		return
	}

	idea := &models.Idea{
		Title:       req.Title,
		Description: req.Description,
		Flowchart:   req.Flowchart,
		UserID:      req.UserID,
	}
	if idea.UserID == nil || *idea.UserID == "" {
		if id, _, ok := middleware.CurrentUser(c); ok {
			idea.UserID = &id
		}
	}

	if err := h.Storage.CreateIdea(c.Request.Context(), idea); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": idea})
}
