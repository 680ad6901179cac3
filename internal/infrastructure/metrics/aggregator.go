// Package metrics maintains per-tenant rolling order metrics in redis.
//
// The aggregator is driven by the event consumer and read by the query
// surface. All counters are independent redis keys updated with atomic
// primitives (INCR / INCRBYFLOAT); the running preparation-time mean is
// stored as a (sum, count) pair and computed on read, so concurrent
// consumers cannot corrupt it.
package metrics

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/redis/go-redis/v9"
)

// MinuteCount is one entry of the orders-per-minute series.
type MinuteCount struct {
	Minute string `json:"minute"`
	Count  int64  `json:"count"`
}

// TenantMetrics is the snapshot returned to dashboards.
type TenantMetrics struct {
	TenantID        string        `json:"tenantId"`
	TotalOrders     int64         `json:"totalOrders"`
	AvgPrepTime     float64       `json:"avgPrepTime"`
	OrdersPerMinute []MinuteCount `json:"ordersPerMinute"`
	LastUpdated     string        `json:"lastUpdated"`
}

// Aggregator folds order events into per-tenant counters and time buckets.
type Aggregator struct {
	client *redis.Client
	logger *logging.ChanneledLogger

	// now is swappable for deterministic bucket tests.
	now func() time.Time
}

// NewAggregator creates a metrics aggregator on top of an established redis client.
func NewAggregator(client *redis.Client, logger *logging.ChanneledLogger) *Aggregator {
	return &Aggregator{
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the aggregator's clock. Test hook.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

func metricsKey(tenantID, metric string) string {
	return fmt.Sprintf("metrics:%s:%s", tenantID, metric)
}

// minuteKey formats a wall-clock minute as year-month-day-hour-minute,
// unpadded. This is the persisted bucket key format; changing it strands
// existing buckets until they expire.
func minuteKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d-%d-%d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// IncrementOrderCount records one created order: the total counter and the
// bucket for the current wall-clock minute. The bucket TTL is reset to
// 3600s on every increment (sliding expiry).
func (a *Aggregator) IncrementOrderCount(ctx context.Context, tenantID string) bool {
	bucket := metricsKey(tenantID, "orders_per_minute:"+minuteKey(a.now()))

	if err := a.client.Incr(ctx, bucket).Err(); err != nil {
		a.logError("incrementOrderCount", tenantID, err)
		return false
	}
	if err := a.client.Expire(ctx, bucket, config.MinuteBucketTTL).Err(); err != nil {
		a.logError("incrementOrderCount", tenantID, err)
		return false
	}

	if err := a.client.Incr(ctx, metricsKey(tenantID, "total_orders")).Err(); err != nil {
		a.logError("incrementOrderCount", tenantID, err)
		return false
	}
	return true
}

// RecordPreparationTime folds one preparation-time sample (minutes) into
// the running mean. Non-positive samples are a no-op. The sum and count are
// incremented independently; a crash between the two can leave them one
// sample apart, which is acceptable for approximate analytics.
func (a *Aggregator) RecordPreparationTime(ctx context.Context, tenantID string, prepTime float64) bool {
	if prepTime <= 0 {
		return false
	}

	if err := a.client.IncrByFloat(ctx, metricsKey(tenantID, "prep_time_sum"), prepTime).Err(); err != nil {
		a.logError("recordPreparationTime", tenantID, err)
		return false
	}
	if err := a.client.Incr(ctx, metricsKey(tenantID, "prep_time_count")).Err(); err != nil {
		a.logError("recordPreparationTime", tenantID, err)
		return false
	}
	return true
}

// GetOrdersPerMinute reconstructs the last N minute buckets ending at now,
// oldest first. A bucket that was never written, or whose TTL lapsed, reads
// as zero. This is a lazy reconstruction, not a maintained window.
func (a *Aggregator) GetOrdersPerMinute(ctx context.Context, tenantID string, minutes int) []MinuteCount {
	if minutes <= 0 {
		return []MinuteCount{}
	}

	now := a.now()
	results := make([]MinuteCount, minutes)
	for i := 0; i < minutes; i++ {
		t := now.Add(-time.Duration(i) * time.Minute)
		count, err := a.getInt(ctx, metricsKey(tenantID, "orders_per_minute:"+minuteKey(t)))
		if err != nil {
			a.logError("getOrdersPerMinute", tenantID, err)
			return []MinuteCount{}
		}
		// Fill back-to-front so the slice comes out oldest first.
		results[minutes-1-i] = MinuteCount{
			Minute: t.Format(time.RFC3339),
			Count:  count,
		}
	}
	return results
}

// GetTenantMetrics returns the full metrics snapshot for a tenant, or nil
// when the store is unreachable. The preparation-time mean is sum/count
// rounded to two decimals; zero when no samples exist.
func (a *Aggregator) GetTenantMetrics(ctx context.Context, tenantID string) *TenantMetrics {
	totalOrders, err := a.getInt(ctx, metricsKey(tenantID, "total_orders"))
	if err != nil {
		a.logError("getTenantMetrics", tenantID, err)
		return nil
	}

	sum, err := a.getFloat(ctx, metricsKey(tenantID, "prep_time_sum"))
	if err != nil {
		a.logError("getTenantMetrics", tenantID, err)
		return nil
	}
	count, err := a.getInt(ctx, metricsKey(tenantID, "prep_time_count"))
	if err != nil {
		a.logError("getTenantMetrics", tenantID, err)
		return nil
	}

	var avg float64
	if count > 0 {
		avg = math.Round(sum/float64(count)*100) / 100
	}

	return &TenantMetrics{
		TenantID:        tenantID,
		TotalOrders:     totalOrders,
		AvgPrepTime:     avg,
		OrdersPerMinute: a.GetOrdersPerMinute(ctx, tenantID, 10),
		LastUpdated:     a.now().Format(time.RFC3339),
	}
}

func (a *Aggregator) getInt(ctx context.Context, key string) (int64, error) {
	val, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed counter %s: %w", key, err)
	}
	return n, nil
}

func (a *Aggregator) getFloat(ctx context.Context, key string) (float64, error) {
	val, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed counter %s: %w", key, err)
	}
	return f, nil
}

func (a *Aggregator) logError(operation, tenantID string, err error) {
	if a.logger == nil {
		return
	}
	a.logger.Metrics().Error("Metrics operation failed",
		"operation", operation,
		"tenantId", tenantID,
		"error", err.Error(),
	)
}
