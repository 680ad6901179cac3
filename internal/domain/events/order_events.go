// Package events provides order lifecycle event types carried on the durable log.
package events

import "time"

// Event types carried on the order-events topic. The set is extensible;
// consumers ignore types they do not understand.
const (
	TypeOrderCreated       = "order_created"
	TypeOrderStatusUpdated = "order_status_updated"
)

// OrderEvent is the wire payload for an order lifecycle event. Events are
// immutable once published. TenantID doubles as the log partition key, so
// all events for one tenant are strictly ordered relative to each other.
type OrderEvent struct {
	EventType   string `json:"eventType"`
	TenantID    string `json:"tenantId"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`

	// order_created fields
	RestaurantID string  `json:"restaurantId,omitempty"`
	CustomerID   string  `json:"customerId,omitempty"`
	Total        float64 `json:"total,omitempty"`
	Items        int     `json:"items,omitempty"`

	// order_status_updated fields
	Status string `json:"status,omitempty"`
	// PreparationTime is in minutes. Zero means not yet measurable for this
	// transition and is ignored by the aggregator.
	PreparationTime float64 `json:"preparationTime,omitempty"`

	Timestamp string `json:"timestamp"`
}

// NewOrderCreated builds an order_created event.
func NewOrderCreated(tenantID, orderID, orderNumber, restaurantID, customerID string, total float64, items int) OrderEvent {
	return OrderEvent{
		EventType:    TypeOrderCreated,
		TenantID:     tenantID,
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		RestaurantID: restaurantID,
		CustomerID:   customerID,
		Total:        total,
		Items:        items,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

// NewOrderStatusUpdated builds an order_status_updated event. prepTime is
// minutes elapsed between preparation start and end, or zero when unknown.
func NewOrderStatusUpdated(tenantID, orderID, orderNumber, status string, prepTime float64) OrderEvent {
	return OrderEvent{
		EventType:       TypeOrderStatusUpdated,
		TenantID:        tenantID,
		OrderID:         orderID,
		OrderNumber:     orderNumber,
		Status:          status,
		PreparationTime: prepTime,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}
