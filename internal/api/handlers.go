package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"risk-service/internal/alerts"
	"risk-service/internal/logging"
	"risk-service/internal/models"
	"risk-service/internal/risk"
	"risk-service/internal/services"
)

// Store is the read-side persistence surface the API needs, plus the admin
// reopen. Writes go through the evaluation service and the alert manager.
type Store interface {
	GetRiskScoresByUserID(ctx context.Context, userID string, days int) ([]models.RiskScore, error)
	HighRiskUsers(ctx context.Context, days int) ([]models.HighRiskUser, error)
	GetAlert(ctx context.Context, id string) (models.Alert, error)
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	CountUnresolved(ctx context.Context) (int, error)
	AlertStats(ctx context.Context) (models.AlertStats, error)
	ReopenAlert(ctx context.Context, id string) (models.Alert, error)
}

type Handler struct {
	store  Store
	svc    *services.Service
	alerts *alerts.Manager
	logger *logging.Logger
}

func NewHandler(store Store, svc *services.Service, alertMgr *alerts.Manager, logger *logging.Logger) *Handler {
	return &Handler{store: store, svc: svc, alerts: alertMgr, logger: logger}
}

type evaluateRequest struct {
	UserID            string   `json:"user_id" binding:"required"`
	Message           string   `json:"message" binding:"required"`
	Emotion           string   `json:"emotion"`
	EmotionConfidence float64  `json:"emotion_confidence"`
	SentimentScore    float64  `json:"sentiment_score"`
	SentimentPolarity string   `json:"sentiment_polarity" binding:"required"`
	PatternFactors    []string `json:"pattern_factors"`
}

// EvaluateMessage scores one message, persists the record, and creates an
// alert when the level qualifies.
func (h *Handler) EvaluateMessage(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid evaluate request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	input := risk.Input{
		UserID:  req.UserID,
		Message: req.Message,
		Emotion: models.EmotionSignal{
			Emotion:    req.Emotion,
			Confidence: req.EmotionConfidence,
		},
		Sentiment: models.SentimentSignal{
			Score:    req.SentimentScore,
			Polarity: models.SentimentPolarity(req.SentimentPolarity),
		},
		PatternFactors: req.PatternFactors,
	}

	score, alert, err := h.svc.Process(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, risk.ErrInvalidInput) {
			h.logger.Errorf("Evaluate rejected for user %s: %v", req.UserID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Evaluate failed for user %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"risk_score": score,
		"alert":      alert,
		"guidance":   risk.ResponseGuidance(score.Level),
	})
}

// GetRiskHistory returns a user's scores inside the days window, newest
// first, with current level and trend.
func (h *Handler) GetRiskHistory(c *gin.Context) {
	userID := c.Param("user_id")
	days := queryInt(c, "days", 30)

	scores, err := h.store.GetRiskScoresByUserID(c.Request.Context(), userID, days)
	if err != nil {
		h.logger.Errorf("Failed to get risk scores for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get risk scores"})
		return
	}

	current := models.RiskLevelLow
	if len(scores) > 0 {
		current = scores[0].Level
	}

	c.JSON(http.StatusOK, models.RiskHistory{
		UserID:       userID,
		Scores:       scores,
		CurrentLevel: current,
		Trend:        risk.Trend(scores),
	})
}

// GetHighRiskUsers lists users with recent HIGH scores, worst first.
func (h *Handler) GetHighRiskUsers(c *gin.Context) {
	days := queryInt(c, "days", 7)

	users, err := h.store.HighRiskUsers(c.Request.Context(), days)
	if err != nil {
		h.logger.Errorf("Failed to get high risk users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get high risk users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"high_risk_users": users,
		"total":           len(users),
		"period_days":     days,
	})
}

// ListAlerts returns alerts filtered by resolved flag, risk level, and a
// days window, newest first, with unresolved totals.
func (h *Handler) ListAlerts(c *gin.Context) {
	filter := models.AlertFilter{
		Days:  queryInt(c, "days", 30),
		Limit: queryInt(c, "limit", 50),
	}

	if raw, ok := c.GetQuery("resolved"); ok {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resolved flag"})
			return
		}
		filter.Resolved = &resolved
	}

	if raw, ok := c.GetQuery("risk_level"); ok {
		level, err := models.ParseRiskLevel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid risk_level"})
			return
		}
		filter.RiskLevel = level
	}

	list, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.logger.Errorf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}

	unresolved, err := h.store.CountUnresolved(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to count unresolved alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}

	c.JSON(http.StatusOK, models.AlertList{
		Alerts:          list,
		TotalCount:      len(list),
		UnresolvedCount: unresolved,
	})
}

// GetAlertStats summarizes alert volume.
func (h *Handler) GetAlertStats(c *gin.Context) {
	stats, err := h.store.AlertStats(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to get alert stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAlert returns one alert with full details.
func (h *Handler) GetAlert(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	alert, err := h.store.GetAlert(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.logger.Errorf("Failed to get alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ResolveAlert performs the one-way open->resolved transition.
func (h *Handler) ResolveAlert(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	// Notes are optional, and so is the body itself.
	var req models.AlertResolve
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alert, err := h.alerts.Resolve(c.Request.Context(), id, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, alerts.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		case errors.Is(err, alerts.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Alert already resolved"})
		default:
			h.logger.Errorf("Failed to resolve alert %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alert"})
		}
		return
	}

	h.logger.Infof("Alert %s resolved", id)
	c.JSON(http.StatusOK, alert)
}

// UnresolveAlert reopens a resolved alert. Admin escape hatch for the
// dashboard.
func (h *Handler) UnresolveAlert(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	alert, err := h.store.ReopenAlert(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.logger.Errorf("Failed to reopen alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reopen alert"})
		return
	}

	h.logger.Infof("Alert %s reopened", id)
	c.JSON(http.StatusOK, alert)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
