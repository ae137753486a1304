package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// StockLedger is the single capability through which every stock mutation in
// the system flows: stock-in, stock-out, adjustments, order reservations, and
// order cancellations. Centralizing the mutation path enforces the two
// invariants (stock never goes negative; every mutation has a matching ledger
// entry) in one place.
type StockLedger interface {
	// Apply executes one stock movement atomically: a conditional stock
	// update on the product or variant row plus the ledger insert, in a
	// single transaction. Returns ErrNotFound if the target row is missing
	// and ErrInsufficientStock if the movement would drive stock negative.
	Apply(ctx context.Context, m domain.Movement) (*domain.LogEntry, error)

	// ApplyAll executes a batch of movements all-or-nothing in one
	// transaction. Used by order reservation and release so a failure on a
	// later item rolls back every earlier one.
	ApplyAll(ctx context.Context, movements []domain.Movement) ([]domain.LogEntry, error)

	// GetStockInfo returns the current stock snapshot for a product or one
	// of its variants.
	GetStockInfo(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*domain.StockInfo, error)
}

// LogRepository provides read-only projections over the inventory log.
type LogRepository interface {
	// List returns log entries matching the filter, newest first.
	List(ctx context.Context, filter domain.LogFilter, params pagination.Params) ([]domain.LogEntry, int, error)

	// Summary aggregates stock value and low/out-of-stock counts over
	// active products.
	Summary(ctx context.Context) (*domain.Summary, error)
}
