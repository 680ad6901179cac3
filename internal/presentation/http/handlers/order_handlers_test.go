package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/application/services"
	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/domain/events"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/metrics"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/database"
	persistence "github.com/AtRiskMedia/orderstack-go/internal/infrastructure/persistence/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

type nopPublisher struct{}

func (nopPublisher) Publish(events.OrderEvent) {}

// newOrderRouter wires the order endpoints behind the real middleware chain,
// the same way the routes package does.
func newOrderRouter(t *testing.T) (*gin.Engine, *persistence.OrderRepository) {
	t.Helper()
	logger := quietLogger(t)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.NewConnection(dsn, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}

	orderRepo := persistence.NewOrderRepository(db.DB, logger)
	restaurantRepo := persistence.NewRestaurantRepository(db.DB, logger)
	menuItemRepo := persistence.NewMenuItemRepository(db.DB, logger)

	if err := restaurantRepo.Upsert(&orders.Restaurant{
		ID:                    "r1",
		TenantID:              "acme",
		Name:                  "Testaurant",
		EstimatedDeliveryTime: 30,
		IsActive:              true,
	}); err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := realtime.NewHub(nil, logger)
	orderService := services.NewOrderService(orderRepo, restaurantRepo, menuItemRepo, nopPublisher{}, hub, logger)
	metricsService := services.NewMetricsService(metrics.NewAggregator(client, logger), hub, logger)
	h := NewOrderHandlers(orderService, metricsService, logger)

	r := gin.New()
	api := r.Group("/api/v1", middleware.TenantMiddleware(), middleware.IdentityMiddleware())
	api.PUT("/orders/:id/status", middleware.RequireIdentity(), h.UpdateOrderStatus)
	return r, orderRepo
}

func seedOrder(t *testing.T, repo *persistence.OrderRepository, tenantID string) *orders.Order {
	t.Helper()
	order := &orders.Order{
		ID:                    ulid.Make().String(),
		TenantID:              tenantID,
		RestaurantID:          "r1",
		CustomerID:            "user-7",
		OrderNumber:           "ORD-test-1",
		Items:                 []orders.OrderItem{{MenuItemID: "m1", Name: "Noodles", Price: 12.50, Quantity: 1}},
		Status:                orders.StatusPending,
		EstimatedDeliveryTime: time.Now().UTC().Add(30 * time.Minute),
		Created:               time.Now().UTC(),
	}
	if err := repo.Insert(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func putStatus(t *testing.T, r *gin.Engine, orderID, token, tenantHeader, status string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(fmt.Sprintf(`{"status":%q}`, status))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID+"/status", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Tenant-ID", tenantHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Restaurant staff of one tenant must not be able to mutate another tenant's
// orders, even when the request's X-Tenant-ID header names the order's
// tenant: the guard compares against the token's tenant claim.
func TestUpdateOrderStatusRejectsForeignTenantStaff(t *testing.T) {
	r, orderRepo := newOrderRouter(t)
	order := seedOrder(t, orderRepo, "acme")

	token, err := security.GenerateUserToken("staff-1", "restaurant", "globex", config.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	w := putStatus(t, r, order.ID, token, "acme", orders.StatusCancelled)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for foreign tenant staff", w.Code)
	}

	stored, err := orderRepo.FindByID(order.ID)
	if err != nil || stored == nil {
		t.Fatalf("FindByID: %v, %v", stored, err)
	}
	if stored.Status != orders.StatusPending {
		t.Errorf("order status = %q, mutated across tenants", stored.Status)
	}
}

func TestUpdateOrderStatusAllowsOwningTenantStaff(t *testing.T) {
	r, orderRepo := newOrderRouter(t)
	order := seedOrder(t, orderRepo, "acme")

	token, err := security.GenerateUserToken("staff-1", "restaurant", "acme", config.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	w := putStatus(t, r, order.ID, token, "acme", orders.StatusConfirmed)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	stored, err := orderRepo.FindByID(order.ID)
	if err != nil || stored == nil {
		t.Fatalf("FindByID: %v, %v", stored, err)
	}
	if stored.Status != orders.StatusConfirmed {
		t.Errorf("order status = %q, want confirmed", stored.Status)
	}
}
