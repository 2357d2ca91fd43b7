// Package engine orchestrates order creation and update: field validation,
// stock validation, line-item replacement and the frozen total price.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/lifecycle"
	"github.com/ashendes/order-api/internal/metrics"
	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/stock"
	"github.com/ashendes/order-api/internal/storage"
)

const (
	maxCustomerNameLen = 100
	maxPhoneLen        = 20
)

// Engine commits orders. All writes of a commit run in one transaction:
// either the full order with its line items lands, or nothing does.
type Engine struct {
	store     *storage.Store
	validator *stock.Validator
	lifecycle *lifecycle.Manager
}

// NewEngine creates a commit engine
func NewEngine(store *storage.Store, validator *stock.Validator, manager *lifecycle.Manager) *Engine {
	return &Engine{store: store, validator: validator, lifecycle: manager}
}

// Create validates and persists a new order. Status is forced to "new" and
// created_at is set server-side; both are never taken from the caller.
func (e *Engine) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCustomerName(req.CustomerName); err != nil {
		return nil, err
	}
	if err := validatePhone(req.Phone); err != nil {
		return nil, err
	}
	if err := e.validator.Validate(ctx, req.OrderItems, 0); err != nil {
		return nil, err
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order := &models.Order{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		Status:       models.OrderStatusNew,
		CreatedAt:    time.Now().UTC(),
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := e.commitLineItems(ctx, tx, order.ID, req.OrderItems); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	saved, err := e.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": saved.ID,
		"items":    len(saved.OrderItems),
		"total":    saved.TotalPrice.String(),
	}).Info("Order created")
	metrics.OrdersTotal.WithLabelValues("created").Inc()

	e.lifecycle.OrderSaved(saved)
	return saved, nil
}

// Update applies a partial update to an order. Unset fields keep their prior
// values. When OrderItems is non-nil the entire prior line-item set is
// replaced and the total recomputed; when nil, line items and total are left
// untouched. Caller-supplied status or total price is never applied.
func (e *Engine) Update(ctx context.Context, orderID int64, req *models.UpdateOrderRequest) (*models.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.ErrOrderNotFound
		}
		return nil, err
	}

	if req.CustomerName != nil {
		if err := validateCustomerName(*req.CustomerName); err != nil {
			return nil, err
		}
		order.CustomerName = *req.CustomerName
	}
	if req.Phone != nil {
		if err := validatePhone(*req.Phone); err != nil {
			return nil, err
		}
		order.Phone = *req.Phone
	}
	if req.Address != nil {
		order.Address = *req.Address
	}

	// An explicit empty list is rejected by the validator; only a nil set
	// means "keep the existing line items"
	if req.OrderItems != nil {
		if err := e.validator.Validate(ctx, req.OrderItems, orderID); err != nil {
			return nil, err
		}
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.UpdateOrderFields(ctx, order); err != nil {
		return nil, err
	}

	if req.OrderItems != nil {
		if err := tx.DeleteOrderItems(ctx, orderID); err != nil {
			return nil, err
		}
		if err := e.commitLineItems(ctx, tx, orderID, req.OrderItems); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	saved, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": saved.ID,
		"items":    len(saved.OrderItems),
	}).Info("Order updated")
	metrics.OrdersTotal.WithLabelValues("updated").Inc()

	e.lifecycle.OrderSaved(saved)
	return saved, nil
}

// commitLineItems inserts the accepted lines and freezes the total from each
// item's unit price as read now, inside the transaction, not from any value
// cached during validation
func (e *Engine) commitLineItems(ctx context.Context, tx *storage.Tx, orderID int64, lines []models.OrderItemRequest) error {
	total := decimal.Zero
	for _, line := range lines {
		price, err := tx.ItemPrice(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return &models.ItemNotFoundError{ItemID: line.ItemID}
			}
			return err
		}
		if err := tx.InsertOrderItem(ctx, orderID, line.ItemID, line.Count); err != nil {
			return err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Count))))
	}
	return tx.SetOrderTotal(ctx, orderID, total)
}

func validateCustomerName(name string) error {
	if len(name) == 0 {
		return &models.ValidationError{Field: "customer_name", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > maxCustomerNameLen {
		return &models.ValidationError{
			Field:   "customer_name",
			Message: fmt.Sprintf("must be at most %d characters", maxCustomerNameLen),
		}
	}
	return nil
}

func validatePhone(phone string) error {
	if utf8.RuneCountInString(phone) > maxPhoneLen {
		return &models.ValidationError{
			Field:   "phone",
			Message: fmt.Sprintf("must be at most %d characters", maxPhoneLen),
		}
	}
	return nil
}
