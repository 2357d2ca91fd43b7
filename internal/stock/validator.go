// Package stock decides whether a set of requested line items can be
// satisfied by the catalog's remaining availability.
package stock

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/metrics"
	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/storage"
)

// ConsumptionSource supplies the validator's view of the catalog and of
// current line-item consumption
type ConsumptionSource interface {
	// StockLevels returns remaining availability for the given items in one
	// aggregate query; missing items are absent from the map.
	StockLevels(ctx context.Context, itemIDs []int64) (map[int64]storage.StockLevel, error)
	// OrderItemCount returns the persisted count for one (order, item) pair.
	OrderItemCount(ctx context.Context, orderID, itemID int64) (int, error)
}

// Validator accepts or rejects requested line items against a single
// consumption snapshot per call
type Validator struct {
	source ConsumptionSource
}

// NewValidator creates a stock validator backed by the given source
func NewValidator(source ConsumptionSource) *Validator {
	return &Validator{source: source}
}

// Validate checks the requested lines against remaining stock. On the update
// path existingOrderID is the order being replaced (0 on create); the amounts
// it already holds are carved back since the replace releases them.
//
// Every line is checked against the same snapshot, taken once per call.
// Duplicate item ids are not merged: each duplicate line is validated
// independently against that shared snapshot, reproducing the documented
// per-line semantics.
func (v *Validator) Validate(ctx context.Context, requested []models.OrderItemRequest, existingOrderID int64) error {
	if len(requested) == 0 {
		metrics.StockRejections.WithLabelValues("empty").Inc()
		return &models.ValidationError{
			Field:   "order_items",
			Message: "order must contain at least one item",
		}
	}

	for _, line := range requested {
		if line.Count <= 0 {
			metrics.StockRejections.WithLabelValues("non_positive_count").Inc()
			return &models.ValidationError{
				Field:   "count",
				Message: fmt.Sprintf("count must be a positive integer, received %d", line.Count),
			}
		}
	}

	// One aggregate read per call; all lines are checked against it
	levels, err := v.source.StockLevels(ctx, distinctItemIDs(requested))
	if err != nil {
		return fmt.Errorf("failed to read stock levels: %w", err)
	}

	carveBack := make(map[int64]int)
	for _, line := range requested {
		level, ok := levels[line.ItemID]
		if !ok {
			metrics.StockRejections.WithLabelValues("item_not_found").Inc()
			return &models.ItemNotFoundError{ItemID: line.ItemID}
		}
		metrics.InventoryRemaining.WithLabelValues(strconv.FormatInt(level.ItemID, 10)).
			Set(float64(level.Remaining))

		currentCount := 0
		if existingOrderID != 0 {
			cached, ok := carveBack[line.ItemID]
			if !ok {
				cached, err = v.source.OrderItemCount(ctx, existingOrderID, line.ItemID)
				if err != nil {
					return fmt.Errorf("failed to read current order count: %w", err)
				}
				carveBack[line.ItemID] = cached
			}
			currentCount = cached
		}

		if level.Remaining+currentCount < line.Count {
			log.WithFields(log.Fields{
				"item_id":   line.ItemID,
				"item":      level.Name,
				"requested": line.Count,
				"available": level.Remaining + currentCount,
			}).Info("Stock validation rejected request")
			metrics.StockRejections.WithLabelValues("insufficient_stock").Inc()
			return &models.InsufficientStockError{
				ItemName:  level.Name,
				Requested: line.Count,
				Available: level.Remaining + currentCount,
			}
		}
	}

	return nil
}

// distinctItemIDs collects the distinct item ids of the request, preserving
// first-seen order
func distinctItemIDs(requested []models.OrderItemRequest) []int64 {
	seen := make(map[int64]struct{}, len(requested))
	ids := make([]int64, 0, len(requested))
	for _, line := range requested {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}
	return ids
}
