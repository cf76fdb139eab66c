package handler

import (
	"net/http"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/logging"
	"hackmate/backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// NewRouter registers every route. m may be nil, in which case /metrics is not served.
func NewRouter(h *Handler, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(h.log))
	if m != nil {
		r.Use(m.GinMiddleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.Use(middleware.CORS(h.cfg.Server.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	{
		api.GET("/initialize", h.Initialize)
		api.POST("/initialize", h.Initialize)

		api.GET("/messages", h.GetMessages)
		api.POST("/messages", h.PostMessage)
		api.GET("/presence", h.GetPresence)

		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		api.GET("/ideas", h.GetIdeas)
		api.POST("/ideas", middleware.RequireAuth(h.Tokens), h.CreateIdea)

		api.POST("/team/profiles", middleware.RequireAuth(h.Tokens), h.UpsertProfile)
		api.GET("/team/profiles/:id", h.GetProfile)
		api.GET("/team/profiles/:id/matches", h.GetMatches)

		api.POST("/findHackathons", h.FindHackathons)
	}
	return r
}
