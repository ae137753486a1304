package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// LedgerRepository implements repository.StockLedger using PostgreSQL. Every
// mutation runs as one transaction: a guarded stock update on the product or
// variant row followed by the inventory log insert.
type LedgerRepository struct {
	pool database.DBTX
}

// NewLedgerRepository creates a new PostgreSQL-backed stock ledger.
func NewLedgerRepository(pool database.DBTX) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Apply executes a single stock movement atomically.
func (r *LedgerRepository) Apply(ctx context.Context, m domain.Movement) (*domain.LogEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin movement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := applyTx(ctx, tx, m)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit movement transaction: %w", err)
	}

	return entry, nil
}

// ApplyAll executes a batch of movements all-or-nothing in one transaction.
func (r *LedgerRepository) ApplyAll(ctx context.Context, movements []domain.Movement) ([]domain.LogEntry, error) {
	if len(movements) == 0 {
		return nil, apperrors.InvalidInput("movements list cannot be empty")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch movement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entries, err := r.ApplyAllIn(ctx, tx, movements)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch movement transaction: %w", err)
	}

	return entries, nil
}

// ApplyAllIn executes a batch of movements inside the caller's transaction.
// Order creation and cancellation use this to keep reservations atomic with
// the order row writes.
func (r *LedgerRepository) ApplyAllIn(ctx context.Context, tx pgx.Tx, movements []domain.Movement) ([]domain.LogEntry, error) {
	entries := make([]domain.LogEntry, 0, len(movements))
	for _, m := range movements {
		entry, err := applyTx(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// applyTx performs one movement inside an existing transaction.
func applyTx(ctx context.Context, tx pgx.Tx, m domain.Movement) (*domain.LogEntry, error) {
	if !domain.IsValidMovementType(m.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement type %q", m.Type))
	}

	var (
		prevQty   int
		newQty    int
		qtyChange int
		avgBefore *int64
		avgAfter  *int64
		err       error
	)

	switch {
	case m.Absolute != nil:
		prevQty, newQty, err = setAbsoluteStock(ctx, tx, m)
		qtyChange = newQty - prevQty
	case m.PurchasePrice != nil:
		prevQty, newQty, avgBefore, avgAfter, err = stockInWithAverage(ctx, tx, m)
		qtyChange = m.Delta
	default:
		prevQty, newQty, err = adjustStockBy(ctx, tx, m)
		qtyChange = m.Delta
	}
	if err != nil {
		return nil, err
	}

	entry := &domain.LogEntry{
		ID:                uuid.New(),
		ProductID:         m.ProductID,
		VariantID:         m.VariantID,
		OrderID:           m.OrderID,
		Type:              m.Type,
		QtyChange:         qtyChange,
		PrevQty:           prevQty,
		NewQty:            newQty,
		PurchasePrice:     m.PurchasePrice,
		AvgPurchaseBefore: avgBefore,
		AvgPurchaseAfter:  avgAfter,
		BatchNumber:       m.BatchNumber,
		Supplier:          m.Supplier,
		Note:              m.Note,
		CreatedBy:         m.ActorID,
		CreatedAt:         time.Now().UTC(),
	}

	insertQuery := `
		INSERT INTO inventory_logs (
			id, product_id, variant_id, order_id, type, qty_change, prev_qty, new_qty,
			purchase_price, avg_purchase_before, avg_purchase_after,
			batch_number, supplier, note, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = tx.Exec(ctx, insertQuery,
		entry.ID,
		entry.ProductID,
		entry.VariantID,
		entry.OrderID,
		entry.Type,
		entry.QtyChange,
		entry.PrevQty,
		entry.NewQty,
		entry.PurchasePrice,
		entry.AvgPurchaseBefore,
		entry.AvgPurchaseAfter,
		entry.BatchNumber,
		entry.Supplier,
		entry.Note,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert inventory log: %w", err)
	}

	return entry, nil
}

// adjustStockBy applies a signed delta with a non-negative guard in the WHERE
// clause, so concurrent movements against the same row cannot both succeed
// past available stock.
func adjustStockBy(ctx context.Context, tx pgx.Tx, m domain.Movement) (prevQty, newQty int, err error) {
	var query string
	var id uuid.UUID
	if m.VariantID != nil {
		query = `
			UPDATE product_variants
			SET current_stock = current_stock + $1, updated_at = NOW()
			WHERE id = $2 AND current_stock + $1 >= 0
			RETURNING current_stock`
		id = *m.VariantID
	} else {
		query = `
			UPDATE products
			SET current_stock = current_stock + $1, updated_at = NOW()
			WHERE id = $2 AND current_stock + $1 >= 0
			RETURNING current_stock`
		id = m.ProductID
	}

	err = tx.QueryRow(ctx, query, m.Delta, id).Scan(&newQty)
	if err == nil {
		return newQty - m.Delta, newQty, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("adjust stock: %w", err)
	}

	// The guard rejected the update: distinguish a missing row from
	// insufficient stock.
	available, lookupErr := currentStock(ctx, tx, m)
	if lookupErr != nil {
		return 0, 0, lookupErr
	}
	return 0, 0, apperrors.InsufficientStock(available, -m.Delta)
}

// setAbsoluteStock sets the stock level outright, locking the row first so
// the previous quantity in the ledger entry is exact.
func setAbsoluteStock(ctx context.Context, tx pgx.Tx, m domain.Movement) (prevQty, newQty int, err error) {
	target := *m.Absolute
	if target < 0 {
		return 0, 0, apperrors.InvalidInput("stock level cannot be negative")
	}

	var lockQuery, updateQuery string
	var id uuid.UUID
	if m.VariantID != nil {
		lockQuery = `SELECT current_stock FROM product_variants WHERE id = $1 FOR UPDATE`
		updateQuery = `UPDATE product_variants SET current_stock = $1, updated_at = NOW() WHERE id = $2`
		id = *m.VariantID
	} else {
		lockQuery = `SELECT current_stock FROM products WHERE id = $1 FOR UPDATE`
		updateQuery = `UPDATE products SET current_stock = $1, updated_at = NOW() WHERE id = $2`
		id = m.ProductID
	}

	if err := tx.QueryRow(ctx, lockQuery, id).Scan(&prevQty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, apperrors.ErrNotFound
		}
		return 0, 0, fmt.Errorf("lock stock row: %w", err)
	}

	if _, err := tx.Exec(ctx, updateQuery, target, id); err != nil {
		return 0, 0, fmt.Errorf("set stock level: %w", err)
	}

	return prevQty, target, nil
}

// stockInWithAverage increments stock and recomputes the product's weighted
// average purchase price in the same transaction. The average always lives on
// the product row, weighted by the prior quantity of the row receiving stock.
func stockInWithAverage(ctx context.Context, tx pgx.Tx, m domain.Movement) (prevQty, newQty int, avgBefore, avgAfter *int64, err error) {
	if m.Delta <= 0 {
		return 0, 0, nil, nil, apperrors.InvalidInput("stock-in quantity must be positive")
	}

	var before int64
	if err := tx.QueryRow(ctx,
		`SELECT avg_purchase_price FROM products WHERE id = $1 FOR UPDATE`,
		m.ProductID,
	).Scan(&before); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, nil, nil, apperrors.ErrNotFound
		}
		return 0, 0, nil, nil, fmt.Errorf("lock product for stock-in: %w", err)
	}

	if m.VariantID != nil {
		if err := tx.QueryRow(ctx,
			`SELECT current_stock FROM product_variants WHERE id = $1 AND product_id = $2 FOR UPDATE`,
			*m.VariantID, m.ProductID,
		).Scan(&prevQty); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, 0, nil, nil, apperrors.ErrNotFound
			}
			return 0, 0, nil, nil, fmt.Errorf("lock variant for stock-in: %w", err)
		}
	} else {
		if err := tx.QueryRow(ctx,
			`SELECT current_stock FROM products WHERE id = $1`,
			m.ProductID,
		).Scan(&prevQty); err != nil {
			return 0, 0, nil, nil, fmt.Errorf("read product stock for stock-in: %w", err)
		}
	}

	after, err := domain.WeightedAveragePrice(prevQty, before, m.Delta, *m.PurchasePrice)
	if err != nil {
		return 0, 0, nil, nil, err
	}

	newQty = prevQty + m.Delta

	if m.VariantID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE product_variants SET current_stock = $1, updated_at = NOW() WHERE id = $2`,
			newQty, *m.VariantID,
		); err != nil {
			return 0, 0, nil, nil, fmt.Errorf("update variant stock: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE products SET avg_purchase_price = $1, updated_at = NOW() WHERE id = $2`,
			after, m.ProductID,
		); err != nil {
			return 0, 0, nil, nil, fmt.Errorf("update product average price: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET current_stock = $1, avg_purchase_price = $2, updated_at = NOW() WHERE id = $3`,
			newQty, after, m.ProductID,
		); err != nil {
			return 0, 0, nil, nil, fmt.Errorf("update product stock and average: %w", err)
		}
	}

	return prevQty, newQty, &before, &after, nil
}

// currentStock reads the present stock level of the movement's target row.
// Returns ErrNotFound if the row does not exist.
func currentStock(ctx context.Context, tx pgx.Tx, m domain.Movement) (int, error) {
	var query string
	var id uuid.UUID
	if m.VariantID != nil {
		query = `SELECT current_stock FROM product_variants WHERE id = $1`
		id = *m.VariantID
	} else {
		query = `SELECT current_stock FROM products WHERE id = $1`
		id = m.ProductID
	}

	var stock int
	if err := tx.QueryRow(ctx, query, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("read current stock: %w", err)
	}
	return stock, nil
}

// GetStockInfo returns the current stock snapshot for a product or variant.
func (r *LedgerRepository) GetStockInfo(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*domain.StockInfo, error) {
	var info domain.StockInfo

	if variantID != nil {
		query := `
			SELECT v.product_id, v.id, p.name || ' / ' || v.name, v.sku, v.current_stock,
				   p.avg_purchase_price, p.low_stock_threshold, v.is_active
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = $1 AND v.product_id = $2`

		var vid uuid.UUID
		err := r.pool.QueryRow(ctx, query, *variantID, productID).Scan(
			&info.ProductID,
			&vid,
			&info.Name,
			&info.SKU,
			&info.CurrentStock,
			&info.AvgPurchasePrice,
			&info.LowStockThreshold,
			&info.IsActive,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("get variant stock info: %w", err)
		}
		info.VariantID = &vid
		return &info, nil
	}

	query := `
		SELECT id, name, sku, current_stock, avg_purchase_price, low_stock_threshold, is_active
		FROM products
		WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&info.ProductID,
		&info.Name,
		&info.SKU,
		&info.CurrentStock,
		&info.AvgPurchasePrice,
		&info.LowStockThreshold,
		&info.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product stock info: %w", err)
	}

	return &info, nil
}
