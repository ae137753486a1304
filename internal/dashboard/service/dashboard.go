package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/dashboard/domain"
	"github.com/utafrali/storefront/internal/dashboard/repository"
)

const (
	defaultTopProducts  = 5
	defaultRecentOrders = 5
	defaultChartDays    = 7
	maxTopProducts      = 50
	maxRecentOrders     = 50
	maxChartDays        = 90
)

// Cache abstracts the Redis stats cache. A nil cache disables caching;
// cache errors are treated as misses and never fail a request.
type Cache interface {
	GetStats(ctx context.Context) (*domain.Stats, error)
	SetStats(ctx context.Context, s *domain.Stats) error
}

// DashboardService serves the read-only admin reporting endpoints.
type DashboardService struct {
	stats  repository.StatsRepository
	cache  Cache
	now    func() time.Time
	logger *slog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(stats repository.StatsRepository, cache Cache, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		stats:  stats,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// GetStats returns the headline figures, consulting the cache first.
func (s *DashboardService) GetStats(ctx context.Context) (*domain.Stats, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetStats(ctx); err == nil {
			return cached, nil
		}
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats, err := s.stats.Stats(ctx, today, monthStart)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, stats); err != nil {
			s.logger.WarnContext(ctx, "failed to cache dashboard stats",
				slog.String("error", err.Error()),
			)
		}
	}

	return stats, nil
}

// TopProducts returns the best sellers. limit defaults to 5 and is capped.
func (s *DashboardService) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	limit = clamp(limit, defaultTopProducts, maxTopProducts)

	products, err := s.stats.TopProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return products, nil
}

// SalesChart returns the daily sales series for the last days days.
func (s *DashboardService) SalesChart(ctx context.Context, days int) ([]domain.DailySales, error) {
	days = clamp(days, defaultChartDays, maxChartDays)

	now := s.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	points, err := s.stats.SalesChart(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("sales chart: %w", err)
	}
	return points, nil
}

// RecentOrders returns the newest orders. limit defaults to 5 and is capped.
func (s *DashboardService) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	limit = clamp(limit, defaultRecentOrders, maxRecentOrders)

	orders, err := s.stats.RecentOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return orders, nil
}

func clamp(v, fallback, max int) int {
	if v <= 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}
