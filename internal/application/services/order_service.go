// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and infrastructure.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/domain/events"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	persistence "github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const taxRate = 0.08

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrMenuItemNotFound   = errors.New("menu item not found or unavailable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrBelowMinimumOrder  = errors.New("subtotal below restaurant minimum order")
	ErrNotAuthorized      = errors.New("not authorized for this order")
)

// CreateOrderInput is the write-path request after upstream validation.
type CreateOrderInput struct {
	RestaurantID    string
	CustomerID      string
	Items           []OrderItemInput
	DeliveryAddress string
	PaymentMethod   string
	Notes           string
}

type OrderItemInput struct {
	MenuItemID          string
	Quantity            int
	SpecialInstructions string
}

// OrderService owns the order write path. Each successful primary write
// publishes a lifecycle event to the durable log and pushes an immediate
// notification to connected dashboards; both side effects are best-effort
// and never fail the write.
type OrderService struct {
	orderRepo      *persistence.OrderRepository
	restaurantRepo *persistence.RestaurantRepository
	menuItemRepo   *persistence.MenuItemRepository
	publisher      messaging.Publisher
	hub            *realtime.Hub
	logger         *logging.ChanneledLogger
}

// NewOrderService creates the order write-path service.
func NewOrderService(
	orderRepo *persistence.OrderRepository,
	restaurantRepo *persistence.RestaurantRepository,
	menuItemRepo *persistence.MenuItemRepository,
	publisher messaging.Publisher,
	hub *realtime.Hub,
	logger *logging.ChanneledLogger,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		restaurantRepo: restaurantRepo,
		menuItemRepo:   menuItemRepo,
		publisher:      publisher,
		hub:            hub,
		logger:         logger,
	}
}

// CreateOrder validates items against the restaurant's menu, prices the
// order, persists it, and fans out the order_created event.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*orders.Order, error) {
	restaurant, err := s.restaurantRepo.FindByID(input.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	tenantID := restaurant.TenantID

	var subtotal float64
	orderItems := make([]orders.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		menuItem, err := s.menuItemRepo.FindAvailable(tenantID, input.RestaurantID, item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu item: %w", err)
		}
		if menuItem == nil {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, item.MenuItemID)
		}

		subtotal += menuItem.Price * float64(item.Quantity)
		orderItems = append(orderItems, orders.OrderItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Price:               menuItem.Price,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	if subtotal < restaurant.MinimumOrder {
		return nil, fmt.Errorf("%w: minimum is %.2f", ErrBelowMinimumOrder, restaurant.MinimumOrder)
	}

	tax := subtotal * taxRate
	total := subtotal + restaurant.DeliveryFee + tax

	now := time.Now().UTC()
	paymentStatus := "paid"
	if input.PaymentMethod == "cash" {
		paymentStatus = "pending"
	}

	order := &orders.Order{
		ID:              ulid.Make().String(),
		TenantID:        tenantID,
		RestaurantID:    input.RestaurantID,
		CustomerID:      input.CustomerID,
		OrderNumber:     newOrderNumber(now),
		Items:           orderItems,
		Subtotal:        subtotal,
		DeliveryFee:     restaurant.DeliveryFee,
		Tax:             tax,
		Total:           total,
		DeliveryAddress: input.DeliveryAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   paymentStatus,
		Notes:           input.Notes,
		Status:          orders.StatusPending,
		EstimatedDeliveryTime: now.Add(
			time.Duration(restaurant.EstimatedDeliveryTime) * time.Minute),
		Created: now,
	}

	if err := s.orderRepo.Insert(order); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	s.logger.WithTenant(logging.ChannelOrders, tenantID).Info("Order created",
		"orderId", order.ID, "orderNumber", order.OrderNumber, "total", total)

	s.publisher.Publish(events.NewOrderCreated(
		tenantID, order.ID, order.OrderNumber,
		order.RestaurantID, order.CustomerID, total, len(orderItems),
	))

	s.hub.EmitOrderCreated(tenantID, map[string]any{
		"orderId":      order.ID,
		"orderNumber":  order.OrderNumber,
		"tenantId":     tenantID,
		"restaurantId": order.RestaurantID,
		"status":       order.Status,
		"total":        order.Total,
	})

	return order, nil
}

// UpdateOrderStatus transitions an order, stamping lifecycle timestamps on
// the first entry into each stage, and fans out the order_status_updated
// event to the tenant room and the customer's personal room.
// callerTenantID, when non-empty, must match the order's tenant.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status, callerTenantID string) (*orders.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if callerTenantID != "" && order.TenantID != callerTenantID {
		return nil, ErrNotAuthorized
	}

	now := time.Now().UTC()
	switch status {
	case orders.StatusPreparing:
		if order.PreparationStartTime == nil {
			order.PreparationStartTime = &now
		}
	case orders.StatusReady:
		if order.PreparationEndTime == nil {
			order.PreparationEndTime = &now
		}
	case orders.StatusDelivered:
		if order.ActualDeliveryTime == nil {
			order.ActualDeliveryTime = &now
		}
	}
	order.Status = status
	order.Changed = &now

	if err := s.orderRepo.UpdateStatus(order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.WithTenant(logging.ChannelOrders, order.TenantID).Info("Order status updated",
		"orderId", order.ID, "status", status)

	s.publisher.Publish(events.NewOrderStatusUpdated(
		order.TenantID, order.ID, order.OrderNumber, status, order.PreparationMinutes(),
	))

	s.hub.EmitOrderUpdated(order.TenantID, order.CustomerID, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"tenantId":    order.TenantID,
		"status":      order.Status,
	})

	return order, nil
}

// GetOrder loads one order by id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// newOrderNumber builds a human-referenceable order number:
// ORD-<millis>-<8 uuid chars>.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
