package caching

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = slog.LevelError
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return logger
}

func newTestCache(t *testing.T) (*TenantCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTenantCache(client, quietLogger(t)), mr
}

type cachedListing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTenantKey(t *testing.T) {
	if got := TenantKey("acme", "restaurants:all"); got != "tenant:acme:restaurants:all" {
		t.Errorf("TenantKey = %q", got)
	}
}

func TestTenantCacheRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	want := cachedListing{Name: "pizza", Count: 7}
	if ok := cache.SetTenantCache(ctx, "acme", "menu:r1", want, time.Hour); !ok {
		t.Fatal("set failed")
	}

	var got cachedListing
	if ok := cache.GetTenantCache(ctx, "acme", "menu:r1", &got); !ok {
		t.Fatal("get missed")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTenantCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var got cachedListing
	if cache.GetTenantCache(context.Background(), "acme", "absent", &got) {
		t.Error("hit on absent key")
	}
}

func TestTenantCacheCorruptPayloadIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)

	mr.Set("tenant:acme:menu:r1", "{not json")

	var got cachedListing
	if cache.GetTenantCache(context.Background(), "acme", "menu:r1", &got) {
		t.Error("corrupt payload reported as hit")
	}
}

func TestTenantCacheDelete(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetTenantCache(ctx, "acme", "menu:r1", cachedListing{Name: "x"}, time.Hour)
	if ok := cache.DeleteTenantCache(ctx, "acme", "menu:r1"); !ok {
		t.Fatal("delete failed")
	}
	if mr.Exists("tenant:acme:menu:r1") {
		t.Error("key survived delete")
	}
}

func TestClearTenantCacheIsolation(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetTenantCache(ctx, "acme", "restaurants:1:10", cachedListing{Name: "a"}, time.Hour)
	cache.SetTenantCache(ctx, "acme", "menu:r1", cachedListing{Name: "b"}, time.Hour)
	cache.SetTenantCache(ctx, "globex", "menu:r9", cachedListing{Name: "c"}, time.Hour)

	if ok := cache.ClearTenantCache(ctx, "acme"); !ok {
		t.Fatal("clear failed")
	}

	if mr.Exists("tenant:acme:restaurants:1:10") || mr.Exists("tenant:acme:menu:r1") {
		t.Error("acme keys survived clear")
	}
	if !mr.Exists("tenant:globex:menu:r9") {
		t.Error("globex key removed by acme clear")
	}
}

func TestClearTenantCacheEmptyNamespace(t *testing.T) {
	cache, _ := newTestCache(t)

	if ok := cache.ClearTenantCache(context.Background(), "nobody"); !ok {
		t.Error("clear on empty namespace reported failure")
	}
}

func TestProcessWideRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "scoreboard", cachedListing{Name: "global", Count: 1}, time.Hour)

	var got cachedListing
	if ok := cache.Get(ctx, "scoreboard", &got); !ok {
		t.Fatal("get missed")
	}
	if got.Name != "global" {
		t.Errorf("got %+v", got)
	}
	cache.Delete(ctx, "scoreboard")
	if cache.Get(ctx, "scoreboard", &got) {
		t.Error("hit after delete")
	}
}
