package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/cache"
	"github.com/crease-analytics/faceoff/internal/dataset"
)

const dateQueryLayout = "2006-01-02"

// PredictionHandler serves single-fixture predictions and the current
// rating table.
type PredictionHandler struct {
	builder    *dataset.Builder
	classifier dataset.Classifier
	cache      *cache.Service
	logger     *logrus.Logger
}

// NewPredictionHandler creates a prediction handler. The cache service may
// be nil when Redis is not configured.
func NewPredictionHandler(builder *dataset.Builder, classifier dataset.Classifier, cacheService *cache.Service, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{
		builder:    builder,
		classifier: classifier,
		cache:      cacheService,
		logger:     logger,
	}
}

// GetPrediction handles GET /api/v1/predictions/:home/:away?date=&season=
// and returns the home-win probability, a confidence tier, and the feature
// snapshot behind it.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	requestID := uuid.New().String()
	homeTeamID := c.Param("home")
	awayTeamID := c.Param("away")

	dateParam := c.DefaultQuery("date", time.Now().UTC().Format(dateQueryLayout))
	date, err := time.Parse(dateQueryLayout, dateParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
		return
	}
	seasonID := c.Query("season")

	log := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"home_team":  homeTeamID,
		"away_team":  awayTeamID,
		"date":       dateParam,
	})

	if h.cache != nil {
		if cached, hit, err := h.cache.GetPrediction(c.Request.Context(), homeTeamID, awayTeamID, date); err != nil {
			log.WithError(err).Warn("Prediction cache lookup failed")
		} else if hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	result, err := h.builder.PredictFixture(h.classifier, homeTeamID, awayTeamID, date, seasonID)
	if err != nil {
		log.WithError(err).Error("Failed to predict fixture")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	if h.cache != nil && !result.InsufficientHistory {
		if err := h.cache.CachePrediction(c.Request.Context(), result); err != nil {
			log.WithError(err).Warn("Failed to cache prediction")
		}
	}

	log.WithFields(logrus.Fields{
		"probability": result.HomeWinProbability,
		"confidence":  result.Confidence,
	}).Info("Served fixture prediction")
	c.JSON(http.StatusOK, result)
}

// GetRatings handles GET /api/v1/ratings and returns the current Elo table.
func (h *PredictionHandler) GetRatings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ratings": h.builder.Elo().Ratings(),
	})
}
