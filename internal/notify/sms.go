package notify

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/order-api/internal/metrics"
	"github.com/ashendes/order-api/internal/patterns"
)

// SMSNotifier posts events to the notification service with circuit breaker
// and bulkhead protection
type SMSNotifier struct {
	client     *resty.Client
	circuit    *patterns.CircuitBreakerWrapper
	bulkhead   *patterns.Bulkhead
	serviceURL string
}

// NewSMSNotifier creates a notifier targeting the given notification service URL
func NewSMSNotifier(serviceURL string) *SMSNotifier {
	return &SMSNotifier{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0), // fire-and-forget, no retries
		circuit:    patterns.NewCircuitBreaker("Notification", "order-api"),
		bulkhead:   patterns.NewBulkhead(10, "notification", "order-api"),
		serviceURL: serviceURL,
	}
}

// OrderSaved dispatches the event asynchronously so commits never block on
// the notification service
func (n *SMSNotifier) OrderSaved(event Event) {
	event.EventID = uuid.New().String()
	go n.send(event)
}

func (n *SMSNotifier) send(event Event) {
	err := n.bulkhead.Execute(func() error {
		_, cbErr := n.circuit.Execute(func() (interface{}, error) {
			resp, httpErr := n.client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(event).
				Post(n.serviceURL + "/sms/send")

			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}

			if resp.StatusCode() != http.StatusOK {
				return nil, fmt.Errorf("notification service returned status %d: %s",
					resp.StatusCode(), resp.String())
			}

			return nil, nil
		})

		return patterns.FormatError("Notification", cbErr)
	})

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.WithFields(log.Fields{
			"event_id": event.EventID,
			"order_id": event.OrderID,
		}).Warn("Failed to send SMS notification: ", err)
		return
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	log.WithFields(log.Fields{
		"event_id": event.EventID,
		"order_id": event.OrderID,
		"phone":    event.Phone,
	}).Info("SMS sent")
}
