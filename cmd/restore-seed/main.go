// restore-seed is a one-shot tool that restores the demo warehouses, catalog,
// opening stock and the admin account. Rows that already exist are left alone,
// so it is safe to run repeatedly.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/config"
	"inventory-transfer/internal/db"
	"inventory-transfer/internal/logger"
)

type seedWarehouse struct {
	name, location, contact, email string
}

type seedItem struct {
	sku, name, category, brand, price string
	minStock                          int
}

var warehouses = []seedWarehouse{
	{"Main Warehouse", "New York, NY", "John Smith", "john@warehouse.com"},
	{"West Coast Hub", "Los Angeles, CA", "Jane Doe", "jane@warehouse.com"},
	{"Central Distribution", "Chicago, IL", "Bob Johnson", "bob@warehouse.com"},
}

var items = []seedItem{
	{"LAP-001", "Laptop Pro 15", "Electronics", "TechBrand", "1299.99", 5},
	{"MON-027", "27\" Monitor", "Electronics", "ViewMax", "349.00", 8},
	{"KEY-101", "Mechanical Keyboard", "Accessories", "TypeRight", "89.50", 15},
	{"MOU-220", "Wireless Mouse", "Accessories", "ClickCo", "29.99", 20},
	{"CHR-010", "Office Chair", "Furniture", "SitWell", "219.00", 4},
}

// openingStock is quantity per item, indexed like warehouses.
var openingStock = map[string][3]int{
	"LAP-001": {40, 12, 3},
	"MON-027": {60, 25, 10},
	"KEY-101": {150, 80, 14},
	"MOU-220": {200, 120, 90},
	"CHR-010": {20, 6, 0},
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "password"
	}
	hash, err := app.HashPassword(password)
	if err != nil {
		log.Fatal("Failed to hash admin password", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect", zap.Error(err))
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("Failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	log.Info("Restoring admin user...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ('admin', 'admin@example.com', $1, 'admin')
		ON CONFLICT (username) DO NOTHING`, hash); err != nil {
		log.Fatal("Failed to restore admin user", zap.Error(err))
	}

	log.Info("Restoring warehouses...")
	warehouseIDs := make([]int64, len(warehouses))
	for i, w := range warehouses {
		id, err := upsertWarehouse(ctx, tx, w)
		if err != nil {
			log.Fatal("Failed to restore warehouse", zap.String("name", w.name), zap.Error(err))
		}
		warehouseIDs[i] = id
	}

	log.Info("Restoring catalog and opening stock...")
	for _, it := range items {
		var itemID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO inventory_items (sku, name, category, brand, price, min_stock_level)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
			ON CONFLICT (sku) DO UPDATE SET updated_at = inventory_items.updated_at
			RETURNING id`,
			it.sku, it.name, it.category, it.brand, it.price, it.minStock,
		).Scan(&itemID)
		if err != nil {
			log.Fatal("Failed to restore item", zap.String("sku", it.sku), zap.Error(err))
		}

		for i, qty := range openingStock[it.sku] {
			if qty == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO stocks (warehouse_id, inventory_item_id, quantity, available_quantity, last_restocked)
				VALUES ($1, $2, $3, $3, now())
				ON CONFLICT (warehouse_id, inventory_item_id) DO NOTHING`,
				warehouseIDs[i], itemID, qty,
			); err != nil {
				log.Fatal("Failed to restore stock", zap.String("sku", it.sku), zap.Error(err))
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("Failed to commit", zap.Error(err))
	}
	log.Info("Seed data restored",
		zap.Int("warehouses", len(warehouses)),
		zap.Int("items", len(items)))
}

// upsertWarehouse returns the id of the warehouse with w's name, creating it when absent.
func upsertWarehouse(ctx context.Context, tx pgx.Tx, w seedWarehouse) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM warehouses WHERE name = $1`, w.name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO warehouses (name, location, contact_person, contact_email)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		w.name, w.location, w.contact, w.email,
	).Scan(&id)
	return id, err
}
