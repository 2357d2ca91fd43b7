package models

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when a referenced order does not exist
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnauthorized is returned when a write is attempted without valid credentials
	ErrUnauthorized = errors.New("authentication required")
)

// ValidationError reports a malformed or out-of-range request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ItemNotFoundError reports a requested item id missing from the catalog
type ItemNotFoundError struct {
	ItemID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item with ID %d does not exist", e.ItemID)
}

// InsufficientStockError reports a requested count exceeding the remaining
// availability of an item, after the current order's own consumption has
// been carved back on the update path
type InsufficientStockError struct {
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for item %s: requested %d, available %d",
		e.ItemName, e.Requested, e.Available)
}
