package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/inventory/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for inventory domain events.
const (
	TopicStockChanged = "storefront.inventory.stock_changed"
	TopicLowStock     = "storefront.inventory.low_stock"
)

// Aggregate type constant.
const AggregateTypeInventory = "inventory"

// Source identifier for events originating from the inventory module.
const SourceInventory = "storefront-inventory"

// StockChangedData is the payload for an inventory.stock_changed event.
type StockChangedData struct {
	LogID     string `json:"log_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Type      string `json:"type"`
	QtyChange int    `json:"qty_change"`
	PrevQty   int    `json:"prev_qty"`
	NewQty    int    `json:"new_qty"`
}

// LowStockData is the payload for an inventory.low_stock event.
type LowStockData struct {
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id,omitempty"`
	SKU               string `json:"sku"`
	CurrentStock      int    `json:"current_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// Producer publishes inventory domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the inventory module.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishStockChanged publishes an inventory.stock_changed event for a
// recorded ledger entry.
func (p *Producer) PublishStockChanged(ctx context.Context, entry *domain.LogEntry) error {
	data := StockChangedData{
		LogID:     entry.ID.String(),
		ProductID: entry.ProductID.String(),
		Type:      entry.Type,
		QtyChange: entry.QtyChange,
		PrevQty:   entry.PrevQty,
		NewQty:    entry.NewQty,
	}
	if entry.VariantID != nil {
		data.VariantID = entry.VariantID.String()
	}
	if entry.OrderID != nil {
		data.OrderID = entry.OrderID.String()
	}

	event, err := pkgkafka.NewEvent(TopicStockChanged, data.ProductID, AggregateTypeInventory, SourceInventory, data)
	if err != nil {
		return fmt.Errorf("create inventory.stock_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicStockChanged, event); err != nil {
		return fmt.Errorf("publish inventory.stock_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.stock_changed event",
		slog.String("product_id", data.ProductID),
		slog.String("type", entry.Type),
		slog.Int("new_qty", entry.NewQty),
	)

	return nil
}

// PublishLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishLowStock(ctx context.Context, info *domain.StockInfo) error {
	data := LowStockData{
		ProductID:         info.ProductID.String(),
		SKU:               info.SKU,
		CurrentStock:      info.CurrentStock,
		LowStockThreshold: info.LowStockThreshold,
	}
	if info.VariantID != nil {
		data.VariantID = info.VariantID.String()
	}

	event, err := pkgkafka.NewEvent(TopicLowStock, data.ProductID, AggregateTypeInventory, SourceInventory, data)
	if err != nil {
		return fmt.Errorf("create inventory.low_stock event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLowStock, event); err != nil {
		return fmt.Errorf("publish inventory.low_stock event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.low_stock event",
		slog.String("product_id", data.ProductID),
		slog.String("sku", info.SKU),
		slog.Int("current_stock", info.CurrentStock),
	)

	return nil
}
