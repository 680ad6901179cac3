package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
)

// MetricsService is the query surface over the aggregator plus the
// dashboard push path. Storage failures degrade to "no data yet" rather
// than error responses.
type MetricsService struct {
	aggregator *metrics.Aggregator
	hub        *realtime.Hub
	logger     *logging.ChanneledLogger
}

// NewMetricsService creates the metrics query service.
func NewMetricsService(aggregator *metrics.Aggregator, hub *realtime.Hub, logger *logging.ChanneledLogger) *MetricsService {
	return &MetricsService{aggregator: aggregator, hub: hub, logger: logger}
}

// GetTenantMetrics returns the tenant's metrics snapshot. A tenant with no
// recorded activity, or an unreachable store, yields an empty snapshot.
func (s *MetricsService) GetTenantMetrics(ctx context.Context, tenantID string) *metrics.TenantMetrics {
	if snapshot := s.aggregator.GetTenantMetrics(ctx, tenantID); snapshot != nil {
		return snapshot
	}
	return &metrics.TenantMetrics{
		TenantID:        tenantID,
		OrdersPerMinute: []metrics.MinuteCount{},
		LastUpdated:     time.Now().UTC().Format(time.RFC3339),
	}
}

// GetOrdersPerMinute returns the per-minute series for the last N minutes.
func (s *MetricsService) GetOrdersPerMinute(ctx context.Context, tenantID string, minutes int) []metrics.MinuteCount {
	return s.aggregator.GetOrdersPerMinute(ctx, tenantID, minutes)
}

// PushUpdate emits a fresh metrics snapshot to the tenant's dashboards.
// Called from the write path so dashboards move ahead of the asynchronous
// consumer.
func (s *MetricsService) PushUpdate(ctx context.Context, tenantID string) {
	s.hub.EmitMetricsUpdate(tenantID, s.GetTenantMetrics(ctx, tenantID))
}
