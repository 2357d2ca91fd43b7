package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/notify"
	"github.com/ashendes/order-api/internal/storage"
)

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) OrderSaved(event notify.Event) {
	r.events = append(r.events, event)
}

func setupManager(t *testing.T) (*Manager, *storage.Store, *recordingNotifier) {
	store, err := storage.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	notifier := &recordingNotifier{}
	return NewManager(store, notifier), store, notifier
}

func createOrder(t *testing.T, store *storage.Store, phone string, total *string) *models.Order {
	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	order := &models.Order{
		CustomerName: "John Doe",
		Phone:        phone,
		Status:       models.OrderStatusNew,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, tx.InsertOrder(ctx, order))
	if total != nil {
		require.NoError(t, tx.SetOrderTotal(ctx, order.ID, decimal.RequireFromString(*total)))
	}
	require.NoError(t, tx.Commit())

	saved, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	return saved
}

func TestSetStatus_AllValuesAssignable(t *testing.T) {
	manager, store, _ := setupManager(t)
	order := createOrder(t, store, "1234567890", nil)

	// No adjacency rules: every status is directly settable, including
	// jumping straight from new to delivered and back out of a terminal state
	for _, status := range []string{
		models.OrderStatusDelivered,
		models.OrderStatusPreparing,
		models.OrderStatusCanceled,
		models.OrderStatusReady,
		models.OrderStatusNew,
	} {
		updated, err := manager.SetStatus(context.Background(), order.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}
}

func TestSetStatus_UnknownValueRejected(t *testing.T) {
	manager, store, _ := setupManager(t)
	order := createOrder(t, store, "1234567890", nil)

	_, err := manager.SetStatus(context.Background(), order.ID, "shipped")

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "status", validationErr.Field)
}

func TestSetStatus_OrderNotFound(t *testing.T) {
	manager, _, _ := setupManager(t)

	_, err := manager.SetStatus(context.Background(), 999, models.OrderStatusReady)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestOrderSaved_NotifiesOnlyAboveThreshold(t *testing.T) {
	manager, store, notifier := setupManager(t)

	cases := []struct {
		total    *string
		notified bool
	}{
		{nil, false},
		{strPtr("49.99"), false},
		{strPtr("50.00"), false}, // strictly greater than 50
		{strPtr("50.01"), true},
		{strPtr("120.00"), true},
	}

	for _, tc := range cases {
		notifier.events = nil
		order := createOrder(t, store, "5551234567", tc.total)

		manager.OrderSaved(order)

		if tc.notified {
			require.Len(t, notifier.events, 1)
			assert.Equal(t, "5551234567", notifier.events[0].Phone)
		} else {
			assert.Empty(t, notifier.events)
		}
	}
}

func TestSetStatus_RunsSaveHook(t *testing.T) {
	manager, store, notifier := setupManager(t)
	order := createOrder(t, store, "5551234567", strPtr("99.00"))

	_, err := manager.SetStatus(context.Background(), order.ID, models.OrderStatusReady)
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, order.ID, notifier.events[0].OrderID)
}

func strPtr(s string) *string { return &s }
