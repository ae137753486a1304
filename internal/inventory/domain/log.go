package domain

import (
	"time"

	"github.com/google/uuid"
)

// Movement types recorded in the inventory log.
const (
	MovementStockIn       = "stock-in"
	MovementStockOut      = "stock-out"
	MovementAdjustment    = "adjustment"
	MovementReturn        = "return"
	MovementOrderReserve  = "order-reserve"
	MovementOrderComplete = "order-complete"
	MovementOrderCancel   = "order-cancel"
)

// ValidMovementTypes returns the set of valid log entry types.
func ValidMovementTypes() []string {
	return []string{
		MovementStockIn,
		MovementStockOut,
		MovementAdjustment,
		MovementReturn,
		MovementOrderReserve,
		MovementOrderComplete,
		MovementOrderCancel,
	}
}

// IsValidMovementType checks whether the given type is a valid log entry type.
func IsValidMovementType(t string) bool {
	for _, v := range ValidMovementTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// LogEntry is an immutable record of a single stock-affecting event.
// Invariant: NewQty == PrevQty + QtyChange and NewQty >= 0.
type LogEntry struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	OrderID           *uuid.UUID `json:"order_id,omitempty"`
	Type              string     `json:"type"`
	QtyChange         int        `json:"qty_change"`
	PrevQty           int        `json:"prev_qty"`
	NewQty            int        `json:"new_qty"`
	PurchasePrice     *int64     `json:"purchase_price,omitempty"`
	AvgPurchaseBefore *int64     `json:"avg_purchase_before,omitempty"`
	AvgPurchaseAfter  *int64     `json:"avg_purchase_after,omitempty"`
	BatchNumber       string     `json:"batch_number,omitempty"`
	Supplier          string     `json:"supplier,omitempty"`
	Note              string     `json:"note,omitempty"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Movement describes a single stock mutation to be applied through the
// ledger. Exactly one of Delta or Absolute drives the stock change: Delta is
// a signed adjustment, Absolute sets the stock level outright (corrections).
// PurchasePrice, when set on a stock-in, triggers a weighted-average
// recomputation of the product's purchase price.
type Movement struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	OrderID       *uuid.UUID
	Type          string
	Delta         int
	Absolute      *int
	PurchasePrice *int64
	BatchNumber   string
	Supplier      string
	Note          string
	ActorID       uuid.UUID
}

// LogFilter narrows ledger queries.
type LogFilter struct {
	ProductID *uuid.UUID
	Type      string
	From      *time.Time
	To        *time.Time
}

// Summary aggregates inventory state over active products.
type Summary struct {
	TotalProducts   int   `json:"total_products"`
	TotalStockValue int64 `json:"total_stock_value"`
	LowStockCount   int   `json:"low_stock_count"`
	OutOfStockCount int   `json:"out_of_stock_count"`
}
