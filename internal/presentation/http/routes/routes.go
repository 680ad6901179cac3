// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/AtRiskMedia/orderstack-go/internal/application/container"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	orderHandlers := handlers.NewOrderHandlers(container.OrderService, container.MetricsService, container.Logger)
	catalogHandlers := handlers.NewCatalogHandlers(container.CatalogService, container.Logger)
	metricsHandlers := handlers.NewMetricsHandlers(container.MetricsService, container.Logger)
	realtimeHandlers := handlers.NewRealtimeHandlers(container.Hub, container.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Websocket entry point. Identity is resolved inside the handler so
	// anonymous dashboards can still connect.
	r.GET("/ws", realtimeHandlers.Connect)

	// Metrics routes are public and tenant-addressed by path, not header.
	metrics := r.Group("/api/v1/metrics")
	{
		metrics.GET("/:tenantId", metricsHandlers.GetTenantMetrics)
		metrics.GET("/:tenantId/orders-per-minute", metricsHandlers.GetOrdersPerMinute)
	}

	// API routes with tenant middleware
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware())
	api.Use(middleware.IdentityMiddleware())
	{
		restaurants := api.Group("/restaurants")
		{
			restaurants.GET("", catalogHandlers.ListRestaurants)
			restaurants.GET("/:id/menu", catalogHandlers.GetMenu)
			restaurants.POST("", middleware.RequireIdentity(), catalogHandlers.UpsertRestaurant)
			restaurants.POST("/:id/menu", middleware.RequireIdentity(), catalogHandlers.UpsertMenuItem)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", middleware.RequireIdentity(), orderHandlers.CreateOrder)
			orders.PUT("/:id/status", middleware.RequireIdentity(), orderHandlers.UpdateOrderStatus)
			orders.GET("/:id", orderHandlers.GetOrder)
		}
	}

	return r
}
