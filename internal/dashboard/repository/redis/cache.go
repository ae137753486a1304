package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/dashboard/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const statsKey = "dashboard:stats"

// StatsCache keeps the headline dashboard figures in Redis for a short
// window so the aggregate queries don't run on every page load. Errors
// degrade gracefully: callers treat them like a miss.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a new Redis-backed stats cache.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{
		client: client,
		ttl:    ttl,
	}
}

// GetStats retrieves the cached stats block.
func (c *StatsCache) GetStats(ctx context.Context) (*domain.Stats, error) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get stats: %w", err)
	}

	var s domain.Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal cached stats: %w", err)
	}

	return &s, nil
}

// SetStats stores the stats block with the configured TTL.
func (c *StatsCache) SetStats(ctx context.Context, s *domain.Stats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	if err := c.client.Set(ctx, statsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats: %w", err)
	}

	return nil
}
