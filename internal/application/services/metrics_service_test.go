package services

import (
	"context"
	"testing"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMetricsService(t *testing.T) (*MetricsService, *metrics.Aggregator, *miniredis.Miniredis) {
	t.Helper()
	logger := quietLogger(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	aggregator := metrics.NewAggregator(client, logger)
	hub := realtime.NewHub(nil, logger)
	return NewMetricsService(aggregator, hub, logger), aggregator, mr
}

func TestGetTenantMetricsPassthrough(t *testing.T) {
	service, aggregator, _ := newMetricsService(t)
	ctx := context.Background()

	aggregator.IncrementOrderCount(ctx, "acme")
	aggregator.IncrementOrderCount(ctx, "acme")

	snapshot := service.GetTenantMetrics(ctx, "acme")
	if snapshot.TotalOrders != 2 {
		t.Errorf("total = %d, want 2", snapshot.TotalOrders)
	}
}

func TestGetTenantMetricsStorageDownFallback(t *testing.T) {
	service, _, mr := newMetricsService(t)
	mr.Close()

	snapshot := service.GetTenantMetrics(context.Background(), "acme")
	if snapshot == nil {
		t.Fatal("nil snapshot; want empty fallback")
	}
	if snapshot.TenantID != "acme" || snapshot.TotalOrders != 0 {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if snapshot.OrdersPerMinute == nil {
		t.Error("ordersPerMinute nil; want empty slice")
	}
}

func TestPushUpdateWithNoDashboards(t *testing.T) {
	service, _, _ := newMetricsService(t)
	// No connected clients; the emit must be a quiet no-op.
	service.PushUpdate(context.Background(), "acme")
}
