package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hackmate/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type profileRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	TechStack    string   `json:"techStack"`
	Skills       string   `json:"skills"`
	Availability []string `json:"availability"`
	LookingFor   []string `json:"lookingFor"`
	GithubRepo   string   `json:"githubRepo"`
	DiscordLink  string   `json:"discordLink"`
}

// UpsertProfile creates or replaces the profile with the same email.
func (h *Handler) UpsertProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)
	if req.Name == "" || req.Email == "" || req.Role == "" {
		badRequest(c, "name, email and role are required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		badRequest(c, "Invalid email format")
		return
	}

	profile := &models.TeamProfile{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		TechStack:    req.TechStack,
		Skills:       req.Skills,
		Availability: nonNil(req.Availability),
		LookingFor:   nonNil(req.LookingFor),
		GithubRepo:   req.GithubRepo,
		DiscordLink:  req.DiscordLink,
	}
	if err := h.Storage.UpsertProfile(c.Request.Context(), profile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetProfile returns one profile by id.
func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}
	profile, err := h.Storage.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetMatches ranks the other profiles against :id.
func (h *Handler) GetMatches(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	matches, err := h.Matcher.Matches(c.Request.Context(), id, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func profileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid profile id")
		return 0, false
	}
	return uint(id), true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
