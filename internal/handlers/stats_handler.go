package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/recaster/internal/services"
)

// StatsHandler serves GET /api/stats and GET /api/chart-data.
type StatsHandler struct {
	service *services.StatsService
}

// NewStatsHandler builds a StatsHandler.
func NewStatsHandler(service *services.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Stats handles GET /api/stats.
func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

// ChartData handles GET /api/chart-data.
func (h *StatsHandler) ChartData(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ChartData())
}
