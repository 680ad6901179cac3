// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/orderstack-go/internal/application/services"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// MetricsHandlers serves the dashboard metrics query surface. Both routes
// are public: unauthenticated dashboards poll them.
type MetricsHandlers struct {
	metricsService *services.MetricsService
	logger         *logging.ChanneledLogger
}

// NewMetricsHandlers creates new metrics handlers
func NewMetricsHandlers(metricsService *services.MetricsService, logger *logging.ChanneledLogger) *MetricsHandlers {
	return &MetricsHandlers{metricsService: metricsService, logger: logger}
}

// GetTenantMetrics handles GET /api/v1/metrics/:tenantId
func (h *MetricsHandlers) GetTenantMetrics(c *gin.Context) {
	tenantID := c.Param("tenantId")

	snapshot := h.metricsService.GetTenantMetrics(c.Request.Context(), tenantID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// GetOrdersPerMinute handles GET /api/v1/metrics/:tenantId/orders-per-minute
func (h *MetricsHandlers) GetOrdersPerMinute(c *gin.Context) {
	tenantID := c.Param("tenantId")

	minutes := 10
	if raw := c.Query("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "minutes must be a positive integer"})
			return
		}
		minutes = parsed
	}

	data := h.metricsService.GetOrdersPerMinute(c.Request.Context(), tenantID, minutes)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
