package orders

import (
	"database/sql"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
)

type MenuItemRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewMenuItemRepository(db *sql.DB, logger *logging.ChanneledLogger) *MenuItemRepository {
	return &MenuItemRepository{db: db, logger: logger}
}

const menuItemColumns = `id, tenant_id, restaurant_id, name, description, category, price, is_available`

// FindAvailable returns a menu item only when it belongs to the given
// tenant and restaurant and is currently orderable.
func (r *MenuItemRepository) FindAvailable(tenantID, restaurantID, id string) (*orders.MenuItem, error) {
	row := r.db.QueryRow(
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE id = ? AND tenant_id = ? AND restaurant_id = ? AND is_available = 1`,
		id, tenantID, restaurantID,
	)
	item, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *MenuItemRepository) FindByRestaurant(tenantID, restaurantID string) ([]*orders.MenuItem, error) {
	rows, err := r.db.Query(
		`SELECT `+menuItemColumns+` FROM menu_items
		 WHERE tenant_id = ? AND restaurant_id = ? AND is_available = 1
		 ORDER BY category, name`,
		tenantID, restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*orders.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *MenuItemRepository) Upsert(item *orders.MenuItem) error {
	_, err := r.db.Exec(
		`INSERT INTO menu_items (`+menuItemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			price = excluded.price,
			is_available = excluded.is_available`,
		item.ID, item.TenantID, item.RestaurantID, item.Name,
		item.Description, item.Category, item.Price, item.IsAvailable,
	)
	return err
}

func scanMenuItem(row rowScanner) (*orders.MenuItem, error) {
	var item orders.MenuItem
	err := row.Scan(
		&item.ID, &item.TenantID, &item.RestaurantID, &item.Name,
		&item.Description, &item.Category, &item.Price, &item.IsAvailable,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
