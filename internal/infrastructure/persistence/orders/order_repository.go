package orders

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/domain/entities/orders"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
)

type OrderRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewOrderRepository(db *sql.DB, logger *logging.ChanneledLogger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

const orderColumns = `id, tenant_id, restaurant_id, customer_id, order_number, items,
	subtotal, delivery_fee, tax, total, delivery_address, payment_method,
	payment_status, notes, status, estimated_delivery_time,
	preparation_start_time, preparation_end_time, actual_delivery_time,
	created, changed`

func (r *OrderRepository) Insert(order *orders.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.TenantID, order.RestaurantID, order.CustomerID,
		order.OrderNumber, string(items),
		order.Subtotal, order.DeliveryFee, order.Tax, order.Total,
		order.DeliveryAddress, order.PaymentMethod, order.PaymentStatus,
		order.Notes, order.Status,
		order.EstimatedDeliveryTime.UTC().Format(time.RFC3339),
		nullableTime(order.PreparationStartTime),
		nullableTime(order.PreparationEndTime),
		nullableTime(order.ActualDeliveryTime),
		order.Created.UTC().Format(time.RFC3339),
		nullableTime(order.Changed),
	)
	return err
}

func (r *OrderRepository) FindByID(id string) (*orders.Order, error) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus persists a status transition with its lifecycle timestamps.
func (r *OrderRepository) UpdateStatus(order *orders.Order) error {
	_, err := r.db.Exec(
		`UPDATE orders SET status = ?, preparation_start_time = ?,
			preparation_end_time = ?, actual_delivery_time = ?, changed = ?
		 WHERE id = ?`,
		order.Status,
		nullableTime(order.PreparationStartTime),
		nullableTime(order.PreparationEndTime),
		nullableTime(order.ActualDeliveryTime),
		nullableTime(order.Changed),
		order.ID,
	)
	return err
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func scanOrder(row rowScanner) (*orders.Order, error) {
	var order orders.Order
	var items, estimated string
	var prepStart, prepEnd, delivered, changed sql.NullString
	var created string

	err := row.Scan(
		&order.ID, &order.TenantID, &order.RestaurantID, &order.CustomerID,
		&order.OrderNumber, &items,
		&order.Subtotal, &order.DeliveryFee, &order.Tax, &order.Total,
		&order.DeliveryAddress, &order.PaymentMethod, &order.PaymentStatus,
		&order.Notes, &order.Status, &estimated,
		&prepStart, &prepEnd, &delivered, &created, &changed,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(items), &order.Items); err != nil {
		return nil, err
	}
	if order.EstimatedDeliveryTime, err = time.Parse(time.RFC3339, estimated); err != nil {
		return nil, err
	}
	if order.Created, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if order.PreparationStartTime, err = parseNullableTime(prepStart); err != nil {
		return nil, err
	}
	if order.PreparationEndTime, err = parseNullableTime(prepEnd); err != nil {
		return nil, err
	}
	if order.ActualDeliveryTime, err = parseNullableTime(delivered); err != nil {
		return nil, err
	}
	if order.Changed, err = parseNullableTime(changed); err != nil {
		return nil, err
	}
	return &order, nil
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
