// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/orderstack-go/internal/application/services"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/database"
	persistence "github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
)

// Container holds all singleton services and infrastructure dependencies.
// The realtime hub lives here as an explicit handle: components that emit
// receive it through construction, never through package-level state.
type Container struct {
	// Application services (stateless singletons)
	OrderService   *services.OrderService
	CatalogService *services.CatalogService
	MetricsService *services.MetricsService

	// Infrastructure dependencies
	Logger      *logging.ChanneledLogger
	DB          *database.DB
	TenantCache *caching.TenantCache
	Aggregator  *metrics.Aggregator
	Publisher   messaging.Publisher
	Hub         *realtime.Hub
}

// NewContainer wires all singleton services onto the shared infrastructure.
func NewContainer(
	logger *logging.ChanneledLogger,
	db *database.DB,
	tenantCache *caching.TenantCache,
	aggregator *metrics.Aggregator,
	publisher messaging.Publisher,
	hub *realtime.Hub,
) *Container {
	orderRepo := persistence.NewOrderRepository(db.DB, logger)
	restaurantRepo := persistence.NewRestaurantRepository(db.DB, logger)
	menuItemRepo := persistence.NewMenuItemRepository(db.DB, logger)

	return &Container{
		OrderService: services.NewOrderService(
			orderRepo, restaurantRepo, menuItemRepo, publisher, hub, logger),
		CatalogService: services.NewCatalogService(
			restaurantRepo, menuItemRepo, tenantCache, logger),
		MetricsService: services.NewMetricsService(aggregator, hub, logger),

		Logger:      logger,
		DB:          db,
		TenantCache: tenantCache,
		Aggregator:  aggregator,
		Publisher:   publisher,
		Hub:         hub,
	}
}
