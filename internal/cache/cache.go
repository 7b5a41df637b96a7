package cache

import (
	"context"
	"time"

	"tokobuku/backend/internal/domain"
)

// ReportCache memoizes generated profit reports. A report served from cache
// may lag concurrent writes by at most the configured TTL, which matches the
// snapshot semantics of the aggregation itself.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.ProfitReport, bool, error)
	Set(ctx context.Context, key string, value *domain.ProfitReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.ProfitReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.ProfitReport, _ time.Duration) error {
	return nil
}
