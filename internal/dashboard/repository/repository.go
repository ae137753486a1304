package repository

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/dashboard/domain"
)

// StatsRepository defines the read-only aggregate queries behind the
// admin dashboard.
type StatsRepository interface {
	// Stats computes the headline figures. today and monthStart bound the
	// daily and monthly sales windows.
	Stats(ctx context.Context, today, monthStart time.Time) (*domain.Stats, error)

	// TopProducts returns the best sellers by quantity across completed
	// and delivered orders.
	TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error)

	// SalesChart returns per-day sales totals for non-cancelled orders
	// created on or after since.
	SalesChart(ctx context.Context, since time.Time) ([]domain.DailySales, error)

	// RecentOrders returns the newest orders with customer info joined.
	RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error)
}
