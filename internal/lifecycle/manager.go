// Package lifecycle governs order status assignment and the save-time
// notification hook.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/metrics"
	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/notify"
	"github.com/ashendes/order-api/internal/storage"
)

// notificationThreshold is the total price above which a saved order
// triggers an SMS to the customer
var notificationThreshold = decimal.NewFromInt(50)

// Manager assigns order statuses and fires the save hook. Any of the five
// statuses may be set directly; no transition graph is enforced.
type Manager struct {
	store    *storage.Store
	notifier notify.Notifier
}

// NewManager creates a lifecycle manager
func NewManager(store *storage.Store, notifier notify.Notifier) *Manager {
	return &Manager{store: store, notifier: notifier}
}

// SetStatus assigns a status to an order and runs the save hook
func (m *Manager) SetStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, &models.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("%q is not a valid status", status),
		}
	}

	if err := m.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("Order status updated")
	metrics.OrdersTotal.WithLabelValues("status_" + status).Inc()

	m.OrderSaved(order)
	return order, nil
}

// OrderSaved is the save hook: every successful save of an order whose total
// exceeds the threshold emits a notification event with the order's phone
func (m *Manager) OrderSaved(order *models.Order) {
	if order.TotalPrice == nil || !order.TotalPrice.GreaterThan(notificationThreshold) {
		return
	}

	m.notifier.OrderSaved(notify.Event{
		OrderID:    order.ID,
		Phone:      order.Phone,
		TotalPrice: *order.TotalPrice,
	})
}
