package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/pagination"
)

// LogRepository reads the inventory movement history.
type LogRepository struct {
	pool database.DBTX
}

// NewLogRepository creates a new PostgreSQL-backed log reader.
func NewLogRepository(pool database.DBTX) *LogRepository {
	return &LogRepository{pool: pool}
}

// List returns movement entries newest first, filtered and paginated, along
// with the total count matching the filter.
func (r *LogRepository) List(ctx context.Context, filter domain.LogFilter, p pagination.Params) ([]domain.LogEntry, int, error) {
	conditions := []string{}
	args := []any{}
	argPos := 1

	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, *filter.ProductID)
		argPos++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, product_id, variant_id, order_id, type, qty_change, prev_qty, new_qty,
			   purchase_price, avg_purchase_before, avg_purchase_after,
			   batch_number, supplier, note, created_by, created_at,
			   count(*) OVER() AS total_count
		FROM inventory_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)

	args = append(args, p.Limit, p.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	total := 0
	for rows.Next() {
		var e domain.LogEntry
		err := rows.Scan(
			&e.ID,
			&e.ProductID,
			&e.VariantID,
			&e.OrderID,
			&e.Type,
			&e.QtyChange,
			&e.PrevQty,
			&e.NewQty,
			&e.PurchasePrice,
			&e.AvgPurchaseBefore,
			&e.AvgPurchaseAfter,
			&e.BatchNumber,
			&e.Supplier,
			&e.Note,
			&e.CreatedBy,
			&e.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inventory log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate inventory logs: %w", err)
	}

	return entries, total, nil
}

// Summary aggregates the current inventory position across active products.
// Low stock counts products above zero but at or below their threshold; out
// of stock is counted separately.
func (r *LogRepository) Summary(ctx context.Context) (*domain.Summary, error) {
	query := `
		SELECT
			count(*),
			COALESCE(SUM(current_stock::bigint * avg_purchase_price), 0),
			count(*) FILTER (WHERE current_stock > 0 AND current_stock <= low_stock_threshold),
			count(*) FILTER (WHERE current_stock = 0)
		FROM products
		WHERE is_active = true`

	var s domain.Summary
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalProducts,
		&s.TotalStockValue,
		&s.LowStockCount,
		&s.OutOfStockCount,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory summary: %w", err)
	}

	return &s, nil
}
