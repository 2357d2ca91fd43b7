// Package notify delivers fire-and-forget SMS notifications for high-value
// orders to an external notification service.
package notify

import "github.com/ashendes/order-api/internal/models"

// Event carries what the notification service needs about a saved order
type Event struct {
	EventID    string       `json:"event_id"`
	OrderID    int64        `json:"order_id"`
	Phone      string       `json:"phone"`
	TotalPrice models.Money `json:"total_price"`
}

// Notifier receives order-saved events. Implementations must not block the
// caller; delivery is best-effort with no retry or ack.
type Notifier interface {
	OrderSaved(event Event)
}

// NopNotifier discards all events
type NopNotifier struct{}

// OrderSaved does nothing
func (NopNotifier) OrderSaved(Event) {}
