// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"time"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
}

// NewConnection establishes the primary store connection and verifies it.
func NewConnection(dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "path", dataSourceName)

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error())
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error())
		return nil, err
	}

	logger.Database().Info("Database connection established", "path", dataSourceName, "duration", time.Since(start))
	return &DB{db}, nil
}

// EnsureSchema creates the primary store tables when absent.
func (db *DB) EnsureSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			cuisine TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			delivery_fee REAL NOT NULL DEFAULT 0,
			minimum_order REAL NOT NULL DEFAULT 0,
			estimated_delivery_time INTEGER NOT NULL DEFAULT 30,
			rating REAL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_tenant ON restaurants(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			restaurant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL,
			is_available INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant ON menu_items(tenant_id, restaurant_id)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			restaurant_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			order_number TEXT NOT NULL,
			items TEXT NOT NULL,
			subtotal REAL NOT NULL,
			delivery_fee REAL NOT NULL,
			tax REAL NOT NULL,
			total REAL NOT NULL,
			delivery_address TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT '',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			estimated_delivery_time TEXT NOT NULL,
			preparation_start_time TEXT,
			preparation_end_time TEXT,
			actual_delivery_time TEXT,
			created TEXT NOT NULL,
			changed TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_tenant ON orders(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
