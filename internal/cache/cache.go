package cache

import (
	"context"
	"time"

	"dukkan/backend/internal/domain"
)

// DashboardCache holds the last computed dashboard snapshot. The service
// invalidates it after every mutation, so a hit is always consistent with the
// current store state.
type DashboardCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, bool, error)
	Set(ctx context.Context, stats *domain.DashboardStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context) (*domain.DashboardStats, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ *domain.DashboardStats, _ time.Duration) error {
	return nil
}

func (NoopDashboardCache) Invalidate(_ context.Context) error {
	return nil
}
