package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/redis/go-redis/v9"
)

// TenantCache provides namespaced cache operations with tenant isolation.
// Values are JSON-serialized on write and deserialized on read. Every
// failure mode (transport, serialization) degrades to a cache miss; errors
// are logged and never surfaced to callers, so a flaky cache can only cost
// hit rate, not correctness.
type TenantCache struct {
	client *redis.Client
	logger *logging.ChanneledLogger
}

// NewTenantCache creates a tenant cache on top of an established redis client.
func NewTenantCache(client *redis.Client, logger *logging.ChanneledLogger) *TenantCache {
	if logger != nil {
		logger.Cache().Info("Tenant cache initialized", "defaultTTL", config.CacheDefaultTTL)
	}
	return &TenantCache{client: client, logger: logger}
}

// TenantKey builds the namespaced key for a tenant-scoped entry.
func TenantKey(tenantID, key string) string {
	return fmt.Sprintf("tenant:%s:%s", tenantID, key)
}

// SetTenantCache stores a value under the tenant namespace with an explicit TTL.
func (c *TenantCache) SetTenantCache(ctx context.Context, tenantID, key string, value any, ttl time.Duration) bool {
	serialized, err := json.Marshal(value)
	if err != nil {
		c.logError("set", tenantID, key, err)
		return false
	}
	if err := c.client.Set(ctx, TenantKey(tenantID, key), serialized, ttl).Err(); err != nil {
		c.logError("set", tenantID, key, err)
		return false
	}
	return true
}

// GetTenantCache loads a tenant-scoped value into dest. It returns false on
// a miss, and treats storage and decode errors as misses.
func (c *TenantCache) GetTenantCache(ctx context.Context, tenantID, key string, dest any) bool {
	raw, err := c.client.Get(ctx, TenantKey(tenantID, key)).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logError("get", tenantID, key, err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logError("decode", tenantID, key, err)
		return false
	}
	return true
}

// DeleteTenantCache removes a single tenant-scoped entry.
func (c *TenantCache) DeleteTenantCache(ctx context.Context, tenantID, key string) bool {
	if err := c.client.Del(ctx, TenantKey(tenantID, key)).Err(); err != nil {
		c.logError("delete", tenantID, key, err)
		return false
	}
	return true
}

// ClearTenantCache removes every entry under the tenant's prefix. Other
// tenants' keys are untouched. Uses SCAN rather than KEYS so a large
// keyspace does not block the server.
func (c *TenantCache) ClearTenantCache(ctx context.Context, tenantID string) bool {
	pattern := fmt.Sprintf("tenant:%s:*", tenantID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logError("clear", tenantID, pattern, err)
		return false
	}
	if len(keys) == 0 {
		return true
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logError("clear", tenantID, pattern, err)
		return false
	}
	if c.logger != nil {
		c.logger.WithTenant(logging.ChannelCache, tenantID).Info("Tenant cache cleared", "keys", len(keys))
	}
	return true
}

// Set stores a process-wide (non-tenant) value with an explicit TTL.
func (c *TenantCache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	serialized, err := json.Marshal(value)
	if err != nil {
		c.logError("set", "", key, err)
		return false
	}
	if err := c.client.Set(ctx, key, serialized, ttl).Err(); err != nil {
		c.logError("set", "", key, err)
		return false
	}
	return true
}

// Get loads a process-wide value into dest, returning false on a miss.
func (c *TenantCache) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logError("get", "", key, err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logError("decode", "", key, err)
		return false
	}
	return true
}

// Delete removes a process-wide value.
func (c *TenantCache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logError("delete", "", key, err)
		return false
	}
	return true
}

func (c *TenantCache) logError(operation, tenantID, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Cache().Error("Cache operation failed",
		"operation", operation,
		"tenantId", tenantID,
		"key", key,
		"error", err.Error(),
	)
}
