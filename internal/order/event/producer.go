package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/order/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for order domain events.
const (
	TopicOrderCreated       = "storefront.order.created"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicOrderCancelled     = "storefront.order.cancelled"
)

// Aggregate type constant.
const AggregateTypeOrder = "order"

// Source identifier for events originating from the order module.
const SourceOrder = "storefront-order"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	ItemCount   int    `json:"item_count"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
}

// StatusChangedData is the payload for an order.status_changed event.
type StatusChangedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	CustomerID    string `json:"customer_id"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	StockReleased bool   `json:"stock_released"`
}

// Producer publishes order domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the order module.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	data := OrderCreatedData{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID.String(),
		ItemCount:   len(o.Items),
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, data.OrderID, AggregateTypeOrder, SourceOrder, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_number", o.OrderNumber),
		slog.Int64("total_amount", o.TotalAmount),
	)

	return nil
}

// PublishStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishStatusChanged(ctx context.Context, o *domain.Order, oldStatus string) error {
	data := StatusChangedData{
		OrderID:     o.ID.String(),
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID.String(),
		OldStatus:   oldStatus,
		NewStatus:   o.Status,
	}
	if o.ProcessedBy != nil {
		data.ProcessedBy = o.ProcessedBy.String()
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, data.OrderID, AggregateTypeOrder, SourceOrder, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_number", o.OrderNumber),
		slog.String("old_status", oldStatus),
		slog.String("new_status", o.Status),
	)

	return nil
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, o *domain.Order) error {
	data := OrderCancelledData{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID.String(),
		CancelReason:  o.CancelReason,
		StockReleased: !o.StockReserved,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCancelled, data.OrderID, AggregateTypeOrder, SourceOrder, data)
	if err != nil {
		return fmt.Errorf("create order.cancelled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCancelled, event); err != nil {
		return fmt.Errorf("publish order.cancelled event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.cancelled event",
		slog.String("order_number", o.OrderNumber),
		slog.String("cancel_reason", o.CancelReason),
	)

	return nil
}
