// Package storage persists the catalog and orders in SQLite. All money
// columns are fixed-point decimals stored as text; ids are integer rowids.
package storage

import "errors"

// ErrNotFound is returned when a requested entity doesn't exist
var ErrNotFound = errors.New("not found")

// DriverName is the SQLite driver to use (pure Go, no cgo)
const DriverName = "sqlite"

// StockLevel is one row of the consumption snapshot the stock validator
// reads: the item's catalog quantity and what remains of it after the
// counts of every stored line item, regardless of order status.
type StockLevel struct {
	ItemID    int64
	Name      string
	Quantity  int
	Remaining int
}
