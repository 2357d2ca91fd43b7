package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/ashendes/order-api/internal/models"
)

// Store provides SQLite-backed access to the catalog and order repositories
type Store struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys so order/item deletion cascades to line items
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewStore creates a new SQLite store instance
func NewStore(dbPath string) (*Store, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a transaction for an order commit
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Catalog operations

// CreateItem inserts a catalog item
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO items (name, price, quantity) VALUES (?, ?, ?)",
		item.Name, item.Price.String(), item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = id
	return nil
}

// GetItem retrieves a catalog item by id
func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	var price string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price, quantity FROM items WHERE id = ?", id).
		Scan(&item.ID, &item.Name, &price, &item.Quantity)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item.Price, err = models.MoneyFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price for item %d: %w", id, err)
	}
	return &item, nil
}

// ListItems retrieves all catalog items ordered by id
func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price, quantity FROM items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, err
		}
		item.Price, err = models.MoneyFromString(price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price for item %d: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItemPrice sets an item's unit price. Committed orders keep their
// frozen totals; only future commits see the new price.
func (s *Store) UpdateItemPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE items SET price = ? WHERE id = ?", price.String(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes a catalog item. Line items referencing it are
// cascade-deleted, including those of other orders.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// StockLevels computes, in a single aggregate query, the remaining
// availability of the given items: catalog quantity minus the summed count
// of every stored line item referencing them, across all orders. Items
// absent from the catalog are simply absent from the result.
func (s *Store) StockLevels(ctx context.Context, itemIDs []int64) (map[int64]StockLevel, error) {
	if len(itemIDs) == 0 {
		return map[int64]StockLevel{}, nil
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.name, i.quantity,
		       i.quantity - COALESCE(SUM(oi.count), 0) AS remaining
		FROM items i
		LEFT JOIN order_items oi ON oi.item_id = i.id
		WHERE i.id IN (%s)
		GROUP BY i.id, i.name, i.quantity
	`, placeholders(len(itemIDs)))

	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[int64]StockLevel, len(itemIDs))
	for rows.Next() {
		var level StockLevel
		if err := rows.Scan(&level.ItemID, &level.Name, &level.Quantity, &level.Remaining); err != nil {
			return nil, err
		}
		levels[level.ItemID] = level
	}
	return levels, rows.Err()
}

// Order operations

// GetOrder retrieves an order with its nested line items
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, phone, address, total_price, status, created_at
		FROM orders WHERE id = ?
	`, id))
	if err != nil {
		return nil, err
	}

	if err := s.attachOrderItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders retrieves a page of orders, id ascending, with nested line items
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, phone, address, total_price, status, created_at
		FROM orders ORDER BY id LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := s.attachOrderItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// CountOrders returns the total number of orders
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	return count, err
}

// UpdateOrderStatus sets the status of an order
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderItemCount returns the summed persisted count for one (order, item)
// pair, 0 when the order holds no line for that item. This is the amount
// released by the replace-on-update semantics (the carve-back).
func (s *Store) OrderItemCount(ctx context.Context, orderID, itemID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM order_items
		WHERE order_id = ? AND item_id = ?
	`, orderID, itemID).Scan(&count)
	return count, err
}

// DeleteOrder removes an order; its line items are cascade-deleted
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var totalPrice sql.NullString
	err := row.Scan(&order.ID, &order.CustomerName, &order.Phone, &order.Address,
		&totalPrice, &order.Status, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if totalPrice.Valid {
		total, err := models.MoneyFromString(totalPrice.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total price for order %d: %w", order.ID, err)
		}
		order.TotalPrice = &total
	}
	order.OrderItems = []models.OrderItem{}
	return &order, nil
}

// attachOrderItems loads the line items (with nested item summaries) for the
// given orders in one query
func (s *Store) attachOrderItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	args := make([]interface{}, len(orders))
	for i, order := range orders {
		byID[order.ID] = order
		args[i] = order.ID
	}

	query := fmt.Sprintf(`
		SELECT oi.id, oi.order_id, oi.count, i.id, i.name, i.price
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.id
	`, placeholders(len(orders)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderItem
		var orderID int64
		var price string
		if err := rows.Scan(&line.ID, &orderID, &line.Count,
			&line.Item.ID, &line.Item.Name, &price); err != nil {
			return err
		}
		line.Item.Price, err = models.MoneyFromString(price)
		if err != nil {
			return fmt.Errorf("failed to parse price for item %d: %w", line.Item.ID, err)
		}
		if order, ok := byID[orderID]; ok {
			order.OrderItems = append(order.OrderItems, line)
		}
	}
	return rows.Err()
}

// placeholders builds a "?, ?, ?" list of the given length
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Tx wraps the single write transaction of an order commit. Either every
// write in the commit lands or none do.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to defer after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// InsertOrder inserts the base order row and fills in its id
func (t *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (customer_name, phone, address, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, order.CustomerName, order.Phone, order.Address, order.Status, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = id
	return nil
}

// UpdateOrderFields persists the caller-editable order fields. Status,
// total price and created_at are deliberately not touched here.
func (t *Tx) UpdateOrderFields(ctx context.Context, order *models.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET customer_name = ?, phone = ?, address = ? WHERE id = ?
	`, order.CustomerName, order.Phone, order.Address, order.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrderItems removes every line item of an order
func (t *Tx) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"DELETE FROM order_items WHERE order_id = ?", orderID)
	return err
}

// InsertOrderItem inserts one line item. Duplicate item ids across lines of
// the same order are stored as separate rows, not merged.
func (t *Tx) InsertOrderItem(ctx context.Context, orderID, itemID int64, count int) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO order_items (order_id, item_id, count) VALUES (?, ?, ?)",
		orderID, itemID, count)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

// ItemPrice reads an item's current unit price inside the transaction
func (t *Tx) ItemPrice(ctx context.Context, itemID int64) (decimal.Decimal, error) {
	var price string
	err := t.tx.QueryRowContext(ctx,
		"SELECT price FROM items WHERE id = ?", itemID).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(price)
}

// SetOrderTotal stores the frozen total price of an order
func (t *Tx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET total_price = ? WHERE id = ?", total.String(), orderID)
	return err
}

// SeedCatalog loads sample catalog items when the catalog is empty
func (s *Store) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	sampleItems := []models.Item{
		{Name: "Pizza", Price: models.NewMoney(decimal.RequireFromString("10.99")), Quantity: 50},
		{Name: "Burger", Price: models.NewMoney(decimal.RequireFromString("8.99")), Quantity: 30},
		{Name: "Pasta", Price: models.NewMoney(decimal.RequireFromString("12.49")), Quantity: 40},
		{Name: "Salad", Price: models.NewMoney(decimal.RequireFromString("6.99")), Quantity: 25},
		{Name: "Soda", Price: models.NewMoney(decimal.RequireFromString("2.50")), Quantity: 100},
	}
	for i := range sampleItems {
		if err := s.CreateItem(ctx, &sampleItems[i]); err != nil {
			return err
		}
	}
	return nil
}
