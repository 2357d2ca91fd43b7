package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashendes/order-api/internal/auth"
	"github.com/ashendes/order-api/internal/engine"
	"github.com/ashendes/order-api/internal/lifecycle"
	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/notify"
	"github.com/ashendes/order-api/internal/stock"
	"github.com/ashendes/order-api/internal/storage"
)

const testToken = "test-token"

type testAPI struct {
	router *gin.Engine
	store  *storage.Store
}

func setupAPI(t *testing.T) *testAPI {
	gin.SetMode(gin.TestMode)

	store, err := storage.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	validator := stock.NewValidator(store)
	manager := lifecycle.NewManager(store, notify.NopNotifier{})
	commitEngine := engine.NewEngine(store, validator, manager)
	verifier := auth.NewStaticVerifier(testToken)

	server := NewServer(store, commitEngine, manager, verifier)
	return &testAPI{router: server.Router(), store: store}
}

func (a *testAPI) createItem(t *testing.T, name, price string, quantity int) *models.Item {
	item := &models.Item{
		Name:     name,
		Price:    models.NewMoney(decimal.RequireFromString(price)),
		Quantity: quantity,
	}
	require.NoError(t, a.store.CreateItem(context.Background(), item))
	return item
}

func (a *testAPI) request(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) models.Order {
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func TestHealth(t *testing.T) {
	a := setupAPI(t)

	w := a.request(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWritesRequireAuth(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	body := gin.H{
		"customer_name": "Jane Smith",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 1}},
	}

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/orders"},
		{http.MethodPut, "/orders/1"},
		{http.MethodPatch, "/orders/1"},
		{http.MethodPost, "/orders/1/status"},
	} {
		w := a.request(t, tc.method, tc.path, body, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestWrongTokenRejected(t *testing.T) {
	a := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReadsOpen(t *testing.T) {
	a := setupAPI(t)

	w := a.request(t, http.MethodGet, "/orders", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOrder(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)
	burger := a.createItem(t, "Burger", "8.99", 30)

	w := a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "Jane Smith",
		"phone":         "9876543210",
		"address":       "456 Oak St",
		"order_items": []gin.H{
			{"item_id": pizza.ID, "count": 2},
			{"item_id": burger.ID, "count": 1},
		},
	}, true)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decodeOrder(t, w)
	assert.Equal(t, "Jane Smith", order.CustomerName)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	require.NotNil(t, order.TotalPrice)
	assert.Equal(t, "30.97", order.TotalPrice.String())
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, "Pizza", order.OrderItems[0].Item.Name)
}

func TestCreateOrder_ClientStatusIgnored(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	// status and total_price in the body are not part of the request shape
	// and are silently dropped
	w := a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "Jane Smith",
		"status":        "delivered",
		"total_price":   "0.01",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 2}},
	}, true)

	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeOrder(t, w)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.Equal(t, "21.98", order.TotalPrice.String())
}

func TestCreateOrder_EmptyLineItems(t *testing.T) {
	a := setupAPI(t)

	for _, items := range []interface{}{[]gin.H{}, nil} {
		w := a.request(t, http.MethodPost, "/orders", gin.H{
			"customer_name": "Jane Smith",
			"order_items":   items,
		}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	a := setupAPI(t)

	w := a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "Jane Smith",
		"order_items":   []gin.H{{"item_id": 999, "count": 1}},
	}, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	w := a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "Jane Smith",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 51}},
	}, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Pizza")
}

func TestGetOrder(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	created := decodeOrder(t, a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "John Doe",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 2}},
	}, true))

	w := a.request(t, http.MethodGet, fmt.Sprintf("/orders/%d", created.ID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	order := decodeOrder(t, w)
	assert.Equal(t, "John Doe", order.CustomerName)
	assert.Len(t, order.OrderItems, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	a := setupAPI(t)

	w := a.request(t, http.MethodGet, "/orders/999", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.request(t, http.MethodGet, "/orders/not-a-number", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrder_Put(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)
	burger := a.createItem(t, "Burger", "8.99", 30)

	created := decodeOrder(t, a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "John Doe",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 2}},
	}, true))

	w := a.request(t, http.MethodPut, fmt.Sprintf("/orders/%d", created.ID), gin.H{
		"customer_name": "Jane Smith",
		"phone":         "9876543210",
		"address":       "456 Oak St",
		"order_items":   []gin.H{{"item_id": burger.ID, "count": 2}},
	}, true)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decodeOrder(t, w)
	assert.Equal(t, "Jane Smith", order.CustomerName)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "Burger", order.OrderItems[0].Item.Name)
	assert.Equal(t, "17.98", order.TotalPrice.String())
}

func TestUpdateOrder_PatchPartial(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	created := decodeOrder(t, a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "John Doe",
		"phone":         "1234567890",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 2}},
	}, true))

	w := a.request(t, http.MethodPatch, fmt.Sprintf("/orders/%d", created.ID), gin.H{
		"customer_name": "Jane Smith",
	}, true)

	require.Equal(t, http.StatusOK, w.Code)
	order := decodeOrder(t, w)
	assert.Equal(t, "Jane Smith", order.CustomerName)
	assert.Equal(t, "1234567890", order.Phone)
	assert.Len(t, order.OrderItems, 1)
	assert.Equal(t, "21.98", order.TotalPrice.String())
}

func TestUpdateOrder_NotFound(t *testing.T) {
	a := setupAPI(t)

	w := a.request(t, http.MethodPatch, "/orders/999", gin.H{
		"customer_name": "Jane Smith",
	}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetOrderStatus(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 50)

	created := decodeOrder(t, a.request(t, http.MethodPost, "/orders", gin.H{
		"customer_name": "John Doe",
		"order_items":   []gin.H{{"item_id": pizza.ID, "count": 1}},
	}, true))

	w := a.request(t, http.MethodPost, fmt.Sprintf("/orders/%d/status", created.ID), gin.H{
		"status": "preparing",
	}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preparing", decodeOrder(t, w).Status)

	w = a.request(t, http.MethodPost, fmt.Sprintf("/orders/%d/status", created.ID), gin.H{
		"status": "shipped",
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders_Pagination(t *testing.T) {
	a := setupAPI(t)
	pizza := a.createItem(t, "Pizza", "10.99", 100)

	for i := 0; i < 12; i++ {
		w := a.request(t, http.MethodPost, "/orders", gin.H{
			"customer_name": fmt.Sprintf("Customer %d", i),
			"order_items":   []gin.H{{"item_id": pizza.ID, "count": 1}},
		}, true)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.request(t, http.MethodGet, "/orders", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count    int            `json:"count"`
		Next     *string        `json:"next"`
		Previous *string        `json:"previous"`
		Results  []models.Order `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	assert.Equal(t, 12, page.Count)
	assert.Len(t, page.Results, 10)
	require.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)

	// Second page
	w = a.request(t, http.MethodGet, *page.Next, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)

	// id ascending
	w = a.request(t, http.MethodGet, "/orders?limit=100", nil, false)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	for i := 1; i < len(page.Results); i++ {
		assert.Less(t, page.Results[i-1].ID, page.Results[i].ID)
	}
}

func TestListItems(t *testing.T) {
	a := setupAPI(t)
	a.createItem(t, "Pizza", "10.99", 50)
	a.createItem(t, "Burger", "8.99", 30)

	w := a.request(t, http.MethodGet, "/items", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.ItemSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Pizza", items[0].Name)
	assert.Equal(t, "10.99", items[0].Price.String())
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	a := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
