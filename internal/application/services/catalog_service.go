package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	persistence "github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/orders"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
)

// RestaurantListing is the cached page shape for restaurant listings.
type RestaurantListing struct {
	Restaurants []*orders.Restaurant `json:"restaurants"`
	Total       int                  `json:"total"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
}

// CatalogService serves restaurant and menu reads through the tenant cache
// and keeps that cache honest on writes.
//
// Invalidation discipline: a menu-item write clears exactly that
// restaurant's menu entry; a restaurant write clears the tenant's whole
// prefix. Coarse, but it favors correctness over hit rate.
type CatalogService struct {
	restaurantRepo *persistence.RestaurantRepository
	menuItemRepo   *persistence.MenuItemRepository
	cache          *caching.TenantCache
	logger         *logging.ChanneledLogger
}

// NewCatalogService creates the catalog read/write service.
func NewCatalogService(
	restaurantRepo *persistence.RestaurantRepository,
	menuItemRepo *persistence.MenuItemRepository,
	cache *caching.TenantCache,
	logger *logging.ChanneledLogger,
) *CatalogService {
	return &CatalogService{
		restaurantRepo: restaurantRepo,
		menuItemRepo:   menuItemRepo,
		cache:          cache,
		logger:         logger,
	}
}

// ListRestaurants returns a page of the tenant's restaurants, read-through
// cached for 30 minutes under restaurants:<queryHash>:<page>:<limit>.
func (s *CatalogService) ListRestaurants(ctx context.Context, tenantID string, page, limit int) (*RestaurantListing, bool, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("restaurants:%s:%d:%d", listingQueryHash(tenantID, page, limit), page, limit)

	var cached RestaurantListing
	if s.cache.GetTenantCache(ctx, tenantID, cacheKey, &cached) {
		return &cached, true, nil
	}

	restaurants, total, err := s.restaurantRepo.FindByTenant(tenantID, page, limit)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list restaurants: %w", err)
	}

	listing := &RestaurantListing{
		Restaurants: restaurants,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}
	s.cache.SetTenantCache(ctx, tenantID, cacheKey, listing, config.ListingCacheTTL)
	return listing, false, nil
}

// GetMenu returns a restaurant's available menu items, read-through cached
// for 30 minutes under menu:<restaurantId>.
func (s *CatalogService) GetMenu(ctx context.Context, tenantID, restaurantID string) ([]*orders.MenuItem, bool, error) {
	cacheKey := menuCacheKey(restaurantID)

	var cached []*orders.MenuItem
	if s.cache.GetTenantCache(ctx, tenantID, cacheKey, &cached) {
		return cached, true, nil
	}

	items, err := s.menuItemRepo.FindByRestaurant(tenantID, restaurantID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load menu: %w", err)
	}

	s.cache.SetTenantCache(ctx, tenantID, cacheKey, items, config.ListingCacheTTL)
	return items, false, nil
}

// UpsertMenuItem writes a menu item and invalidates exactly that
// restaurant's menu cache entry.
func (s *CatalogService) UpsertMenuItem(ctx context.Context, item *orders.MenuItem) error {
	if err := s.menuItemRepo.Upsert(item); err != nil {
		return fmt.Errorf("failed to upsert menu item: %w", err)
	}
	s.cache.DeleteTenantCache(ctx, item.TenantID, menuCacheKey(item.RestaurantID))
	s.logger.WithTenant(logging.ChannelCache, item.TenantID).Debug("Menu cache invalidated",
		"restaurantId", item.RestaurantID)
	return nil
}

// UpsertRestaurant writes a restaurant and clears every cache entry under
// that tenant's prefix.
func (s *CatalogService) UpsertRestaurant(ctx context.Context, restaurant *orders.Restaurant) error {
	if err := s.restaurantRepo.Upsert(restaurant); err != nil {
		return fmt.Errorf("failed to upsert restaurant: %w", err)
	}
	s.cache.ClearTenantCache(ctx, restaurant.TenantID)
	return nil
}

func menuCacheKey(restaurantID string) string {
	return "menu:" + restaurantID
}

// listingQueryHash fingerprints the full listing query so each distinct
// query caches under its own key.
func listingQueryHash(tenantID string, page, limit int) string {
	query, _ := json.Marshal(struct {
		TenantID string `json:"tenantId"`
		Page     int    `json:"page"`
		Limit    int    `json:"limit"`
	}{tenantID, page, limit})
	sum := sha256.Sum256(query)
	return hex.EncodeToString(sum[:4])
}
