package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// deliveryTimeout bounds a single webhook delivery, independent of the
// request that triggered it.
const deliveryTimeout = 10 * time.Second

// WebhookNotifier posts order confirmations to an external endpoint.
// Deliveries run in the background through a circuit breaker; a dead
// endpoint never slows down or fails order placement.
type WebhookNotifier struct {
	client *httpclient.CircuitBreakerClient
	url    string
	logger *slog.Logger
}

// NewWebhookNotifier creates a webhook notifier. An empty URL disables
// delivery.
func NewWebhookNotifier(client *httpclient.CircuitBreakerClient, url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

type confirmationPayload struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  string    `json:"customer_id"`
	TotalAmount int64     `json:"total_amount"`
	Status      string    `json:"status"`
	PlacedAt    time.Time `json:"placed_at"`
}

// OrderConfirmation delivers the confirmation webhook in the background.
func (n *WebhookNotifier) OrderConfirmation(o *domain.Order) {
	if n.url == "" {
		return
	}

	payload := confirmationPayload{
		Event:       "order.confirmation",
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID.String(),
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		PlacedAt:    o.CreatedAt,
	}

	go n.deliver(payload)
}

func (n *WebhookNotifier) deliver(payload confirmationPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal order confirmation payload",
			slog.String("order_number", payload.OrderNumber),
			slog.String("error", err.Error()),
		)
		return
	}

	resp, err := n.client.Post(ctx, n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("order confirmation webhook failed",
			slog.String("order_number", payload.OrderNumber),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.Debug("order confirmation webhook delivered",
		slog.String("order_number", payload.OrderNumber),
		slog.Int("status", resp.StatusCode),
	)
}
