package handler

import (
	"errors"
	"net/http"
	"strings"

	"hackmate/backend/internal/hackathon"

	"github.com/gin-gonic/gin"
)

type findHackathonsRequest struct {
	Interest string `json:"interest"`
}

// FindHackathons searches hackathons for an interest.
func (h *Handler) FindHackathons(c *gin.Context) {
	var req findHackathonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Interest) == "" {
		badRequest(c, "Interest is required")
		return
	}
	if h.Finder == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Hackathon data is currently unavailable."})
		return
	}

	hackathons, err := h.Finder.Find(c.Request.Context(), req.Interest)
	switch {
	case errors.Is(err, hackathon.ErrInterestRequired):
		badRequest(c, "Interest is required")
		return
	case errors.Is(err, hackathon.ErrUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"message": "Hackathon data is currently unavailable."})
		return
	case err != nil:
		h.respondError(c, err)
		return
	}

	if len(hackathons) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No hackathons found for the given interest."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hackathons": hackathons})
}
