package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	invdomain "github.com/utafrali/storefront/internal/inventory/domain"
	"github.com/utafrali/storefront/internal/order/domain"
	"github.com/utafrali/storefront/internal/order/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// StockMover applies inventory movements inside an existing transaction.
// The inventory ledger implements it; the order repository uses it to make
// reservations and releases atomic with order writes.
type StockMover interface {
	ApplyAllIn(ctx context.Context, tx pgx.Tx, movements []invdomain.Movement) ([]invdomain.LogEntry, error)
}

// orderColumns is the standard SELECT column list for orders.
const orderColumns = `id, order_number, customer_id, subtotal, tax_amount, shipping_amount,
	total_amount, status, shipping_address, payment, customer_note, admin_note,
	cancel_reason, stock_reserved, processed_by, cancelled_at, shipped_at,
	delivered_at, completed_at, created_at, updated_at`

// itemColumns is the standard SELECT column list for order items.
const itemColumns = `id, order_id, product_id, variant_id, name, sku, variant_info,
	qty, price_at_order, line_total`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool  database.DBTX
	mover StockMover
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX, mover StockMover) *OrderRepository {
	return &OrderRepository{pool: pool, mover: mover}
}

// Create inserts the order, its items and the stock reservations in one
// transaction. Any failed reservation rolls back the whole order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, reservations []invdomain.Movement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	address, payment, err := marshalOrderJSON(o)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (id, order_number, customer_id, subtotal, tax_amount,
			shipping_amount, total_amount, status, shipping_address, payment,
			customer_note, admin_note, cancel_reason, stock_reserved, processed_by,
			cancelled_at, shipped_at, delivered_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.OrderNumber, o.CustomerID, o.Subtotal, o.TaxAmount,
		o.ShippingAmount, o.TotalAmount, o.Status, address, payment,
		o.CustomerNote, o.AdminNote, o.CancelReason, o.StockReserved, o.ProcessedBy,
		o.CancelledAt, o.ShippedAt, o.DeliveredAt, o.CompletedAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "number", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		if err := insertItem(ctx, tx, &o.Items[i]); err != nil {
			return err
		}
	}

	if len(reservations) > 0 {
		if _, err := r.mover.ApplyAllIn(ctx, tx, reservations); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	row := r.pool.QueryRow(ctx, query, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}

	return o, nil
}

// List returns orders matching the filter, newest first, with items attached.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter, p pagination.Params) ([]domain.Order, int, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, *filter.CustomerID)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, strings.Join(conditions, " AND "), argPos, argPos+1)
	args = append(args, p.Limit, p.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	total := 0
	ids := []uuid.UUID{}
	for rows.Next() {
		o, err := scanOrderWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(ids) > 0 {
		itemsByOrder, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = itemsByOrder[orders[i].ID]
			if orders[i].Items == nil {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, total, nil
}

// UpdateStatus persists the order's current status fields and applies any
// release movements in the same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order, releases []invdomain.Movement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE orders
		SET status = $1, admin_note = $2, cancel_reason = $3, stock_reserved = $4,
		    processed_by = $5, cancelled_at = $6, shipped_at = $7, delivered_at = $8,
		    completed_at = $9, updated_at = $10
		WHERE id = $11`

	ct, err := tx.Exec(ctx, query,
		o.Status, o.AdminNote, o.CancelReason, o.StockReserved,
		o.ProcessedBy, o.CancelledAt, o.ShippedAt, o.DeliveredAt,
		o.CompletedAt, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if len(releases) > 0 {
		if _, err := r.mover.ApplyAllIn(ctx, tx, releases); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit status transaction: %w", err)
	}

	return nil
}

// --- helpers ---

func insertItem(ctx context.Context, tx pgx.Tx, item *domain.OrderItem) error {
	variantInfo, err := json.Marshal(item.VariantInfo)
	if err != nil {
		return fmt.Errorf("marshal variant info: %w", err)
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, name, sku,
			variant_info, qty, price_at_order, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.VariantID, item.Name, item.SKU,
		variantInfo, item.Qty, item.PriceAtOrder, item.LineTotal,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}

	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_items WHERE order_id = ANY($1) ORDER BY name`, itemColumns)

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem)
	for rows.Next() {
		var item domain.OrderItem
		var variantInfo []byte
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.Name,
			&item.SKU, &variantInfo, &item.Qty, &item.PriceAtOrder, &item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if len(variantInfo) > 0 {
			if err := json.Unmarshal(variantInfo, &item.VariantInfo); err != nil {
				return nil, fmt.Errorf("unmarshal variant info: %w", err)
			}
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	return scanOrderInto(row, nil)
}

func scanOrderWithTotal(row rowScanner, total *int) (*domain.Order, error) {
	return scanOrderInto(row, total)
}

func scanOrderInto(row rowScanner, total *int) (*domain.Order, error) {
	var o domain.Order
	var address, payment []byte

	dest := []any{
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Subtotal, &o.TaxAmount,
		&o.ShippingAmount, &o.TotalAmount, &o.Status, &address, &payment,
		&o.CustomerNote, &o.AdminNote, &o.CancelReason, &o.StockReserved,
		&o.ProcessedBy, &o.CancelledAt, &o.ShippedAt, &o.DeliveredAt,
		&o.CompletedAt, &o.CreatedAt, &o.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	if len(payment) > 0 {
		if err := json.Unmarshal(payment, &o.Payment); err != nil {
			return nil, fmt.Errorf("unmarshal payment info: %w", err)
		}
	}

	return &o, nil
}

func marshalOrderJSON(o *domain.Order) (address, payment []byte, err error) {
	address, err = json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	payment, err = json.Marshal(o.Payment)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payment info: %w", err)
	}
	return address, payment, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
