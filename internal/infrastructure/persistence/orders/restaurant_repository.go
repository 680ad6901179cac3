// Package orders provides the primary-store repositories for restaurants,
// menu items, and orders.
package orders

import (
	"database/sql"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
)

type RestaurantRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewRestaurantRepository(db *sql.DB, logger *logging.ChanneledLogger) *RestaurantRepository {
	return &RestaurantRepository{db: db, logger: logger}
}

const restaurantColumns = `id, tenant_id, name, cuisine, address, delivery_fee,
	minimum_order, estimated_delivery_time, rating, is_active`

func (r *RestaurantRepository) FindByID(id string) (*orders.Restaurant, error) {
	row := r.db.QueryRow(`SELECT `+restaurantColumns+` FROM restaurants WHERE id = ?`, id)
	restaurant, err := scanRestaurant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return restaurant, nil
}

// FindByTenant lists a tenant's active restaurants with offset pagination.
func (r *RestaurantRepository) FindByTenant(tenantID string, page, limit int) ([]*orders.Restaurant, int, error) {
	var total int
	if err := r.db.QueryRow(
		`SELECT COUNT(*) FROM restaurants WHERE tenant_id = ? AND is_active = 1`, tenantID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	rows, err := r.db.Query(
		`SELECT `+restaurantColumns+` FROM restaurants
		 WHERE tenant_id = ? AND is_active = 1
		 ORDER BY name LIMIT ? OFFSET ?`,
		tenantID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*orders.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, restaurant)
	}
	return result, total, rows.Err()
}

func (r *RestaurantRepository) Upsert(restaurant *orders.Restaurant) error {
	_, err := r.db.Exec(
		`INSERT INTO restaurants (`+restaurantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cuisine = excluded.cuisine,
			address = excluded.address,
			delivery_fee = excluded.delivery_fee,
			minimum_order = excluded.minimum_order,
			estimated_delivery_time = excluded.estimated_delivery_time,
			rating = excluded.rating,
			is_active = excluded.is_active`,
		restaurant.ID, restaurant.TenantID, restaurant.Name, restaurant.Cuisine,
		restaurant.Address, restaurant.DeliveryFee, restaurant.MinimumOrder,
		restaurant.EstimatedDeliveryTime, restaurant.Rating, restaurant.IsActive,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (*orders.Restaurant, error) {
	var restaurant orders.Restaurant
	var rating sql.NullFloat64
	err := row.Scan(
		&restaurant.ID, &restaurant.TenantID, &restaurant.Name, &restaurant.Cuisine,
		&restaurant.Address, &restaurant.DeliveryFee, &restaurant.MinimumOrder,
		&restaurant.EstimatedDeliveryTime, &rating, &restaurant.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		restaurant.Rating = &rating.Float64
	}
	return &restaurant, nil
}
