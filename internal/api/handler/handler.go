// Package handler implements the HTTP and WebSocket endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/chathub"
	"hackmate/backend/internal/config"
	"hackmate/backend/internal/hackathon"
	"hackmate/backend/internal/storage"
	"hackmate/backend/internal/teammatch"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Deps are the services the handlers call into.
type Deps struct {
	Hub     *chathub.ManagerService
	Storage storage.Storage
	Matcher *teammatch.MatcherService
	Finder  *hackathon.Finder
	Tokens  *middleware.TokenIssuer
	Config  *config.Config
	Log     *zap.Logger

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Handler holds the dependencies shared by every endpoint.
type Handler struct {
	Hub     *chathub.ManagerService
	Storage storage.Storage
	Matcher *teammatch.MatcherService
	Finder  *hackathon.Finder
	Tokens  *middleware.TokenIssuer

	cfg        *config.Config
	log        *zap.Logger
	upgrader   websocket.Upgrader
	bcryptCost int
}

func NewHandler(d Deps) *Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	cost := d.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	matcher := d.Matcher
	if matcher == nil && d.Storage != nil {
		matcher = teammatch.NewMatcherService(d.Storage, log)
	}

	return &Handler{
		Hub:     d.Hub,
		Storage: d.Storage,
		Matcher: matcher,
		Finder:  d.Finder,
		Tokens:  d.Tokens,
		cfg:     cfg,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.OriginAllowed(cfg.Server.AllowedOrigins),
		},
		bcryptCost: cost,
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError maps service errors onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chathub.ErrValidation), errors.Is(err, hackathon.ErrInterestRequired):
		badRequest(c, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case storage.IsMissingTable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "database is not initialized",
			"hint":  "call /api/initialize to create the tables",
		})
	case errors.Is(err, hackathon.ErrUpstream):
		h.log.Warn("hackathon search failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch hackathon data"})
	case errors.Is(err, chathub.ErrHubStopped), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	_ = c.Error(err)
}
