package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pagedResponse is the envelope of the order list
type pagedResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []models.Order `json:"results"`
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.store.ListItems(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	summaries := make([]models.ItemSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, items[i].Summary())
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) listOrders(c *gin.Context) {
	limit := intQuery(c, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	count, err := s.store.CountOrders(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	orders, err := s.store.ListOrders(ctx, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	resp := pagedResponse{Count: count, Results: orders}
	if offset+limit < count {
		next := pageURL(limit, offset+limit)
		resp.Next = &next
	}
	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := pageURL(limit, prevOffset)
		resp.Previous = &prev
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	order, err := s.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	order, err := s.engine.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) updateOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	order, err := s.engine.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) setOrderStatus(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	var req models.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	order, err := s.lifecycle.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// writeError maps domain errors onto HTTP responses
func writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var itemNotFound *models.ItemNotFoundError
	var insufficientStock *models.InsufficientStockError

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &itemNotFound),
		errors.As(err, &insufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func orderID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func pageURL(limit, offset int) string {
	return fmt.Sprintf("/orders?limit=%d&offset=%d", limit, offset)
}
