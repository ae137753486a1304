package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/inventory/event"
	"github.com/utafrali/storefront/internal/inventory/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// InventoryService implements the business logic for stock movements and
// movement history.
type InventoryService struct {
	ledger   repository.StockLedger
	logs     repository.LogRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(
	ledger repository.StockLedger,
	logs repository.LogRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		ledger:   ledger,
		logs:     logs,
		producer: producer,
		logger:   logger,
	}
}

// StockInInput carries a purchase receipt for a product or variant.
type StockInInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Qty           int
	PurchasePrice int64
	BatchNumber   string
	Supplier      string
	Note          string
	ActorID       uuid.UUID
}

// StockOutInput carries a manual stock removal.
type StockOutInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	Note      string
	ActorID   uuid.UUID
}

// AdjustInput sets the stock level of a product or variant outright.
type AdjustInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	NewQty    int
	Note      string
	ActorID   uuid.UUID
}

// StockIn records a purchase receipt: stock goes up and the product's
// weighted average purchase price is recomputed in the same transaction.
func (s *InventoryService) StockIn(ctx context.Context, in StockInInput) (*domain.LogEntry, error) {
	if in.Qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}
	if in.PurchasePrice < 0 {
		return nil, apperrors.InvalidInput("purchase price cannot be negative")
	}

	entry, err := s.ledger.Apply(ctx, domain.Movement{
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		Type:          domain.MovementStockIn,
		Delta:         in.Qty,
		PurchasePrice: &in.PurchasePrice,
		BatchNumber:   in.BatchNumber,
		Supplier:      in.Supplier,
		Note:          in.Note,
		ActorID:       in.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("stock in: %w", err)
	}

	s.publishStockChanged(ctx, entry)

	s.logger.InfoContext(ctx, "stock received",
		slog.String("product_id", in.ProductID.String()),
		slog.Int("qty", in.Qty),
		slog.Int("new_qty", entry.NewQty),
		slog.String("supplier", in.Supplier),
	)

	return entry, nil
}

// StockOut records a manual removal, for damage, loss or other shrinkage.
// Fails with ErrInsufficientStock when the removal exceeds available stock.
func (s *InventoryService) StockOut(ctx context.Context, in StockOutInput) (*domain.LogEntry, error) {
	if in.Qty <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	entry, err := s.ledger.Apply(ctx, domain.Movement{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Type:      domain.MovementStockOut,
		Delta:     -in.Qty,
		Note:      in.Note,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("stock out: %w", err)
	}

	s.publishStockChanged(ctx, entry)
	s.checkLowStock(ctx, in.ProductID, in.VariantID)

	s.logger.InfoContext(ctx, "stock removed",
		slog.String("product_id", in.ProductID.String()),
		slog.Int("qty", in.Qty),
		slog.Int("new_qty", entry.NewQty),
	)

	return entry, nil
}

// AdjustStock sets the stock level to an exact count, as after a physical
// inventory. The ledger entry records the signed difference.
func (s *InventoryService) AdjustStock(ctx context.Context, in AdjustInput) (*domain.LogEntry, error) {
	if in.NewQty < 0 {
		return nil, apperrors.InvalidInput("stock level cannot be negative")
	}

	note := in.Note
	if note == "" {
		note = "Manual stock adjustment"
	}

	entry, err := s.ledger.Apply(ctx, domain.Movement{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Type:      domain.MovementAdjustment,
		Absolute:  &in.NewQty,
		Note:      note,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	s.publishStockChanged(ctx, entry)
	s.checkLowStock(ctx, in.ProductID, in.VariantID)

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", in.ProductID.String()),
		slog.Int("prev_qty", entry.PrevQty),
		slog.Int("new_qty", entry.NewQty),
	)

	return entry, nil
}

// GetStockInfo returns the current stock snapshot for a product or variant.
func (s *InventoryService) GetStockInfo(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*domain.StockInfo, error) {
	info, err := s.ledger.GetStockInfo(ctx, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("get stock info: %w", err)
	}
	return info, nil
}

// Logs returns the movement history, newest first.
func (s *InventoryService) Logs(ctx context.Context, filter domain.LogFilter, p pagination.Params) (*pagination.Result[domain.LogEntry], error) {
	if filter.Type != "" && !domain.IsValidMovementType(filter.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement type %q", filter.Type))
	}

	p.Normalize()
	entries, total, err := s.logs.List(ctx, filter, p)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}

	result := pagination.NewResult(entries, total, p)
	return &result, nil
}

// Summary returns the aggregate inventory position.
func (s *InventoryService) Summary(ctx context.Context) (*domain.Summary, error) {
	summary, err := s.logs.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory summary: %w", err)
	}
	return summary, nil
}

// publishStockChanged emits the movement event. Publish failures are logged
// and do not fail the movement, which has already committed.
func (s *InventoryService) publishStockChanged(ctx context.Context, entry *domain.LogEntry) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishStockChanged(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.stock_changed event",
			slog.String("product_id", entry.ProductID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// checkLowStock publishes a low-stock alert when the target dropped to or
// below its threshold but is not yet out of stock.
func (s *InventoryService) checkLowStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) {
	if s.producer == nil {
		return
	}

	info, err := s.ledger.GetStockInfo(ctx, productID, variantID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read stock info for low-stock check",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !info.LowStock() {
		return
	}

	if err := s.producer.PublishLowStock(ctx, info); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()),
		)
	}
}
