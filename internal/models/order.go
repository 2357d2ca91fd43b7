package models

import "time"

// Order represents a customer order with its line items
type Order struct {
	ID           int64       `json:"id"`
	CustomerName string      `json:"customer_name"`
	Phone        string      `json:"phone"`
	Address      string      `json:"address"`
	TotalPrice   *Money      `json:"total_price"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	OrderItems   []OrderItem `json:"order_items"`
}

// OrderItem represents one (item, count) line within an order
type OrderItem struct {
	ID    int64       `json:"id"`
	Item  ItemSummary `json:"item"`
	Count int         `json:"count"`
}

// OrderStatus constants. Terminal states (delivered, canceled) are a
// convention only; any of the five values may be assigned directly.
const (
	OrderStatusNew       = "new"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
)

// ValidStatus reports whether s is one of the five order statuses
func ValidStatus(s string) bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// OrderItemRequest is one requested (item, count) line
type OrderItemRequest struct {
	ItemID int64 `json:"item_id"`
	Count  int   `json:"count"`
}

// CreateOrderRequest is the body for creating a new order. Status and
// total_price are not part of the request; both are set server-side.
type CreateOrderRequest struct {
	CustomerName string             `json:"customer_name"`
	Phone        string             `json:"phone"`
	Address      string             `json:"address"`
	OrderItems   []OrderItemRequest `json:"order_items"`
}

// UpdateOrderRequest is the body for updating an order. Nil fields are left
// untouched. A nil OrderItems keeps the existing line items; a non-nil set
// replaces them entirely.
type UpdateOrderRequest struct {
	CustomerName *string            `json:"customer_name"`
	Phone        *string            `json:"phone"`
	Address      *string            `json:"address"`
	OrderItems   []OrderItemRequest `json:"order_items"`
}

// SetStatusRequest is the body for a status transition
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
