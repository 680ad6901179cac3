package handlers

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/orderstack-go/internal/application/services"
	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// CatalogHandlers serves restaurant and menu reads (cached) and writes
// (cache-invalidating).
type CatalogHandlers struct {
	catalogService *services.CatalogService
	logger         *logging.ChanneledLogger
}

// NewCatalogHandlers creates new catalog handlers
func NewCatalogHandlers(catalogService *services.CatalogService, logger *logging.ChanneledLogger) *CatalogHandlers {
	return &CatalogHandlers{catalogService: catalogService, logger: logger}
}

// ListRestaurants handles GET /api/v1/restaurants
func (h *CatalogHandlers) ListRestaurants(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	listing, cached, err := h.catalogService.ListRestaurants(c.Request.Context(), tenantID, page, limit)
	if err != nil {
		h.logger.Database().Error("Restaurant listing failed", "tenantId", tenantID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cached":  cached,
		"data":    listing,
	})
}

// GetMenu handles GET /api/v1/restaurants/:id/menu
func (h *CatalogHandlers) GetMenu(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	restaurantID := c.Param("id")

	items, cached, err := h.catalogService.GetMenu(c.Request.Context(), tenantID, restaurantID)
	if err != nil {
		h.logger.Database().Error("Menu load failed", "tenantId", tenantID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cached":  cached,
		"count":   len(items),
		"data":    items,
	})
}

type upsertMenuItemRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	IsAvailable *bool   `json:"isAvailable"`
}

// UpsertMenuItem handles POST /api/v1/restaurants/:id/menu
func (h *CatalogHandlers) UpsertMenuItem(c *gin.Context) {
	var req upsertMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	item := &orders.MenuItem{
		ID:           req.ID,
		TenantID:     middleware.GetTenantID(c),
		RestaurantID: c.Param("id"),
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		IsAvailable:  true,
	}
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.catalogService.UpsertMenuItem(c.Request.Context(), item); err != nil {
		h.logger.Database().Error("Menu item upsert failed", "tenantId", item.TenantID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

type upsertRestaurantRequest struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name" binding:"required"`
	Cuisine               string  `json:"cuisine"`
	Address               string  `json:"address"`
	DeliveryFee           float64 `json:"deliveryFee"`
	MinimumOrder          float64 `json:"minimumOrder"`
	EstimatedDeliveryTime int     `json:"estimatedDeliveryTime"`
	IsActive              *bool   `json:"isActive"`
}

// UpsertRestaurant handles POST /api/v1/restaurants
func (h *CatalogHandlers) UpsertRestaurant(c *gin.Context) {
	var req upsertRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	restaurant := &orders.Restaurant{
		ID:                    req.ID,
		TenantID:              middleware.GetTenantID(c),
		Name:                  req.Name,
		Cuisine:               req.Cuisine,
		Address:               req.Address,
		DeliveryFee:           req.DeliveryFee,
		MinimumOrder:          req.MinimumOrder,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
		IsActive:              true,
	}
	if restaurant.ID == "" {
		restaurant.ID = ulid.Make().String()
	}
	if restaurant.EstimatedDeliveryTime == 0 {
		restaurant.EstimatedDeliveryTime = 30
	}
	if req.IsActive != nil {
		restaurant.IsActive = *req.IsActive
	}

	if err := h.catalogService.UpsertRestaurant(c.Request.Context(), restaurant); err != nil {
		h.logger.Database().Error("Restaurant upsert failed", "tenantId", restaurant.TenantID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    restaurant,
	})
}
