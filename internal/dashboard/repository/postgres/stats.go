package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/dashboard/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// StatsRepository implements repository.StatsRepository using PostgreSQL.
type StatsRepository struct {
	pool database.DBTX
}

// NewStatsRepository creates a new PostgreSQL-backed stats repository.
func NewStatsRepository(pool database.DBTX) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Stats computes the headline dashboard figures in four aggregate queries:
// order money, order counts, inventory, and customer count.
func (r *StatsRepository) Stats(ctx context.Context, today, monthStart time.Time) (*domain.Stats, error) {
	var s domain.Stats

	salesQuery := `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE status IN ('completed', 'delivered')), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE created_at >= $1 AND status <> 'cancelled'), 0),
			COUNT(*) FILTER (WHERE created_at >= $1 AND status <> 'cancelled'),
			COALESCE(SUM(total_amount) FILTER (WHERE created_at >= $2 AND status <> 'cancelled'), 0)
		FROM orders`

	if err := r.pool.QueryRow(ctx, salesQuery, today, monthStart).Scan(
		&s.TotalSales, &s.TodaySales, &s.TodayOrders, &s.MonthlySales,
	); err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}

	countsQuery := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'pending')
		FROM orders`

	if err := r.pool.QueryRow(ctx, countsQuery).Scan(&s.TotalOrders, &s.PendingOrders); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	// Low stock means above zero but at or under the threshold; exhausted
	// products are counted on their own.
	inventoryQuery := `
		SELECT
			COUNT(*),
			COALESCE(SUM(current_stock::bigint * avg_purchase_price), 0),
			COUNT(*) FILTER (WHERE current_stock > 0 AND current_stock <= low_stock_threshold),
			COUNT(*) FILTER (WHERE current_stock = 0)
		FROM products
		WHERE is_active = true`

	if err := r.pool.QueryRow(ctx, inventoryQuery).Scan(
		&s.TotalProducts, &s.TotalInventoryValue, &s.LowStockCount, &s.OutOfStockCount,
	); err != nil {
		return nil, fmt.Errorf("aggregate inventory: %w", err)
	}

	customersQuery := `SELECT COUNT(*) FROM users WHERE role = 'customer'`

	if err := r.pool.QueryRow(ctx, customersQuery).Scan(&s.TotalCustomers); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	return &s, nil
}

// TopProducts returns the best sellers by quantity across completed and
// delivered orders.
func (r *StatsRepository) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	query := `
		SELECT oi.product_id, oi.name, SUM(oi.qty)::int, SUM(oi.line_total)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status IN ('completed', 'delivered')
		GROUP BY oi.product_id, oi.name
		ORDER BY SUM(oi.qty) DESC, SUM(oi.line_total) DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	products := []domain.TopProduct{}
	for rows.Next() {
		var p domain.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.TotalQty, &p.TotalRevenue); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top products: %w", err)
	}

	return products, nil
}

// SalesChart returns per-day sales totals for non-cancelled orders created
// on or after since.
func (r *StatsRepository) SalesChart(ctx context.Context, since time.Time) ([]domain.DailySales, error) {
	query := `
		SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(total_amount), 0), COUNT(*)::int
		FROM orders
		WHERE created_at >= $1 AND status <> 'cancelled'
		GROUP BY day
		ORDER BY day`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query sales chart: %w", err)
	}
	defer rows.Close()

	points := []domain.DailySales{}
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Date, &d.Sales, &d.Orders); err != nil {
			return nil, fmt.Errorf("scan sales point: %w", err)
		}
		points = append(points, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales points: %w", err)
	}

	return points, nil
}

// RecentOrders returns the newest orders with customer info joined.
func (r *StatsRepository) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	query := `
		SELECT o.id, o.order_number, o.status, o.total_amount, u.name, u.email, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.customer_id
		ORDER BY o.created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.RecentOrder{}
	for rows.Next() {
		var o domain.RecentOrder
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.TotalAmount,
			&o.CustomerName, &o.CustomerEmail, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent orders: %w", err)
	}

	return orders, nil
}
