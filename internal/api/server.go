// Package api exposes the HTTP surface of the order service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/auth"
	"github.com/ashendes/order-api/internal/engine"
	"github.com/ashendes/order-api/internal/lifecycle"
	"github.com/ashendes/order-api/internal/metrics"
	"github.com/ashendes/order-api/internal/storage"
)

// Server holds the handler dependencies
type Server struct {
	store     *storage.Store
	engine    *engine.Engine
	lifecycle *lifecycle.Manager
	verifier  auth.Verifier
}

// NewServer creates a server over the given components
func NewServer(store *storage.Store, commitEngine *engine.Engine, manager *lifecycle.Manager, verifier auth.Verifier) *Server {
	return &Server{
		store:     store,
		engine:    commitEngine,
		lifecycle: manager,
		verifier:  verifier,
	}
}

// Router builds the Gin engine with all routes. Reads are open; writes go
// through the auth middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(metrics.PrometheusMiddleware("order-api"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Read-only catalog
	router.GET("/items", s.listItems)

	// Order endpoints
	router.GET("/orders", s.listOrders)
	router.GET("/orders/:id", s.getOrder)

	authed := router.Group("/", auth.RequireAuth(s.verifier))
	authed.POST("/orders", s.createOrder)
	authed.PUT("/orders/:id", s.updateOrder)
	authed.PATCH("/orders/:id", s.updateOrder)
	authed.POST("/orders/:id/status", s.setOrderStatus)

	return router
}

// requestIDMiddleware tags every request with a uuid for log correlation
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
		}).Info("Request handled")
	}
}
