package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"risk-service/internal/config"
	"risk-service/internal/logging"
)

func NewRouter(h *Handler, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Risk scores
		api.POST("/risk/evaluate", h.EvaluateMessage)
		api.GET("/risk/high-risk-users", h.GetHighRiskUsers)
		api.GET("/risk/:user_id", h.GetRiskHistory)

		// Alerts
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/stats", h.GetAlertStats)
		api.GET("/alerts/:id", h.GetAlert)
		api.PUT("/alerts/:id/resolve", h.ResolveAlert)
		api.PUT("/alerts/:id/unresolve", h.UnresolveAlert)
	}

	// Dashboard alert feed
	r.GET("/ws/alerts", h.AlertFeed)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
