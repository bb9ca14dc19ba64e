package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/recaster/internal/models"
	"github.com/subculture-collective/recaster/internal/services"
)

// RecommendationHandler serves POST /api/recommendations.
type RecommendationHandler struct {
	service *services.RecommendationService
}

// NewRecommendationHandler builds a RecommendationHandler.
func NewRecommendationHandler(service *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

// GetRecommendations handles POST /api/recommendations.
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recs, err := h.service.GetRecommendations(c.Request.Context(), req.UserID, req.Count)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get recommendations"})
		return
	}

	c.JSON(http.StatusOK, recs)
}
