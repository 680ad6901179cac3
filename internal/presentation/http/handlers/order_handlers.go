package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/orderstack-go/internal/application/services"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// OrderHandlers owns the order write path endpoints.
type OrderHandlers struct {
	orderService   *services.OrderService
	metricsService *services.MetricsService
	logger         *logging.ChanneledLogger
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(orderService *services.OrderService, metricsService *services.MetricsService, logger *logging.ChanneledLogger) *OrderHandlers {
	return &OrderHandlers{
		orderService:   orderService,
		metricsService: metricsService,
		logger:         logger,
	}
}

type createOrderRequest struct {
	RestaurantID string `json:"restaurantId" binding:"required"`
	Items        []struct {
		MenuItemID          string `json:"menuItemId" binding:"required"`
		Quantity            int    `json:"quantity" binding:"required,min=1"`
		SpecialInstructions string `json:"specialInstructions"`
	} `json:"items" binding:"required,min=1"`
	DeliveryAddress string `json:"deliveryAddress" binding:"required"`
	PaymentMethod   string `json:"paymentMethod" binding:"required"`
	Notes           string `json:"notes"`
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	input := services.CreateOrderInput{
		RestaurantID:    req.RestaurantID,
		CustomerID:      middleware.GetUserID(c),
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.OrderItemInput{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	h.metricsService.PushUpdate(c.Request.Context(), order.TenantID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed preparing ready out_for_delivery delivered cancelled"`
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	// Restaurant staff may only touch their own tenant's orders. The guard
	// compares against the token's tenant claim, never the X-Tenant-ID
	// header; admins carry no tenant claim and pass an empty guard.
	callerTenantID := ""
	if c.GetString("userRole") == "restaurant" {
		callerTenantID = middleware.GetUserTenantID(c)
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, callerTenantID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	h.metricsService.PushUpdate(c.Request.Context(), order.TenantID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandlers) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

func (h *OrderHandlers) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRestaurantNotFound),
		errors.Is(err, services.ErrMenuItemNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrBelowMinimumOrder):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
	default:
		h.logger.Orders().Error("Order operation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}
