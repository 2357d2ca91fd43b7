// Package auth gates write operations behind an external authentication
// collaborator. Reads are open.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/models"
	"github.com/ashendes/order-api/internal/patterns"
)

// Verifier checks a bearer token
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// StaticVerifier accepts a single configured token
type StaticVerifier struct {
	token string
}

// NewStaticVerifier creates a verifier for a fixed API token
func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: token}
}

// Verify accepts the configured token and nothing else
func (v *StaticVerifier) Verify(_ context.Context, token string) error {
	if token == "" || token != v.token {
		return models.ErrUnauthorized
	}
	return nil
}

// RemoteVerifier delegates token verification to the auth service
type RemoteVerifier struct {
	client     *resty.Client
	circuit    *patterns.CircuitBreakerWrapper
	serviceURL string
}

// NewRemoteVerifier creates a verifier calling the given auth service URL
func NewRemoteVerifier(serviceURL string) *RemoteVerifier {
	return &RemoteVerifier{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
		circuit:    patterns.NewCircuitBreaker("Auth", "order-api"),
		serviceURL: serviceURL,
	}
}

// Verify posts the token to the auth service; any non-200 answer or
// transport failure leaves the caller unauthenticated
func (v *RemoteVerifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrUnauthorized
	}

	_, cbErr := v.circuit.Execute(func() (interface{}, error) {
		resp, httpErr := v.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"token": token}).
			Post(v.serviceURL + "/auth/verify")

		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}

		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode())
		}

		return nil, nil
	})

	if cbErr != nil {
		log.Warn("Token verification failed: ", patterns.FormatError("Auth", cbErr))
		return models.ErrUnauthorized
	}
	return nil
}

// RequireAuth is a Gin middleware rejecting requests without a valid
// bearer token
func RequireAuth(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		if err := verifier.Verify(c.Request.Context(), token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Next()
	}
}
