package domain

import (
	"github.com/google/uuid"
)

// StockInfo is a read-only snapshot of the stock state for a product or one
// of its variants, used for event payloads and low-stock detection.
type StockInfo struct {
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	Name              string     `json:"name"`
	SKU               string     `json:"sku"`
	CurrentStock      int        `json:"current_stock"`
	AvgPurchasePrice  int64      `json:"avg_purchase_price"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	IsActive          bool       `json:"is_active"`
}

// LowStock reports whether the stock level is at or below the threshold
// without being exhausted. Zero stock is tracked separately as out-of-stock.
func (s *StockInfo) LowStock() bool {
	return s.CurrentStock > 0 && s.CurrentStock <= s.LowStockThreshold
}
