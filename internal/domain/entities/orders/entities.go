// Package orders defines the application's core order-related domain entities.
package orders

import "time"

// Order statuses follow the kitchen lifecycle. Timestamps are stamped on the
// first transition into the matching status and never overwritten.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusPreparing      = "preparing"
	StatusReady          = "ready"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

type Restaurant struct {
	ID                    string   `json:"id"`
	TenantID              string   `json:"tenantId"`
	Name                  string   `json:"name"`
	Cuisine               string   `json:"cuisine"`
	Address               string   `json:"address"`
	DeliveryFee           float64  `json:"deliveryFee"`
	MinimumOrder          float64  `json:"minimumOrder"`
	EstimatedDeliveryTime int      `json:"estimatedDeliveryTime"` // minutes
	Rating                *float64 `json:"rating,omitempty"`
	IsActive              bool     `json:"isActive"`
}

type MenuItem struct {
	ID           string  `json:"id"`
	TenantID     string  `json:"tenantId"`
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	IsAvailable  bool    `json:"isAvailable"`
}

type OrderItem struct {
	MenuItemID          string  `json:"menuItemId"`
	Name                string  `json:"name"`
	Price               float64 `json:"price"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

type Order struct {
	ID                    string      `json:"id"`
	TenantID              string      `json:"tenantId"`
	RestaurantID          string      `json:"restaurantId"`
	CustomerID            string      `json:"customerId"`
	OrderNumber           string      `json:"orderNumber"`
	Items                 []OrderItem `json:"items"`
	Subtotal              float64     `json:"subtotal"`
	DeliveryFee           float64     `json:"deliveryFee"`
	Tax                   float64     `json:"tax"`
	Total                 float64     `json:"total"`
	DeliveryAddress       string      `json:"deliveryAddress"`
	PaymentMethod         string      `json:"paymentMethod"`
	PaymentStatus         string      `json:"paymentStatus"`
	Notes                 string      `json:"notes,omitempty"`
	Status                string      `json:"status"`
	EstimatedDeliveryTime time.Time   `json:"estimatedDeliveryTime"`
	PreparationStartTime  *time.Time  `json:"preparationStartTime,omitempty"`
	PreparationEndTime    *time.Time  `json:"preparationEndTime,omitempty"`
	ActualDeliveryTime    *time.Time  `json:"actualDeliveryTime,omitempty"`
	Created               time.Time   `json:"created"`
	Changed               *time.Time  `json:"changed,omitempty"`
}

// PreparationMinutes returns the measured preparation time in minutes, or
// zero when either boundary is missing.
func (o *Order) PreparationMinutes() float64 {
	if o.PreparationStartTime == nil || o.PreparationEndTime == nil {
		return 0
	}
	return o.PreparationEndTime.Sub(*o.PreparationStartTime).Minutes()
}
