package core

import (
	"context"
)

// Store is the persistence boundary of the core. Implementations live in
// internal/store/postgres and internal/store/memory.
//
// Reads on the Store itself see committed state only. Every ledger or transfer
// mutation goes through WithinTx.
type Store interface {
	Catalog

	GetStock(ctx context.Context, warehouseID, itemID int64) (*Stock, error)
	GetTransfer(ctx context.Context, id int64) (*StockTransfer, error)
	ListTransfers(ctx context.Context, f TransferFilter) ([]StockTransfer, int, error)
	TransferStats(ctx context.Context) (*TransferStats, error)

	// ListWarehouseStock joins every stock row of a warehouse with its item.
	ListWarehouseStock(ctx context.Context, warehouseID int64) ([]WarehouseStockLine, error)
	// ListLowStock returns active items with at least one stock row at or below their threshold.
	ListLowStock(ctx context.Context) ([]LowStockItem, error)

	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u *User) error

	// WithinTx runs fn inside one unit of work. fn's error rolls everything back;
	// a nil return commits and then runs the hooks registered with Tx.AfterCommit.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Catalog covers items and warehouses. Each call is its own statement.
type Catalog interface {
	CreateItem(ctx context.Context, item *InventoryItem) error
	GetItem(ctx context.Context, id int64) (*InventoryItem, error)
	ListItems(ctx context.Context, activeOnly bool) ([]InventoryItem, error)
	// UpdateItem persists the mutable fields of item. The stored SKU never changes.
	UpdateItem(ctx context.Context, item *InventoryItem) error
	// DeleteItem hard-deletes an unreferenced item and deactivates a referenced one.
	// The returned bool reports whether it was deactivated.
	DeleteItem(ctx context.Context, id int64) (bool, error)

	CreateWarehouse(ctx context.Context, w *Warehouse) error
	GetWarehouse(ctx context.Context, id int64) (*Warehouse, error)
	ListWarehouses(ctx context.Context, activeOnly bool) ([]Warehouse, error)
	UpdateWarehouse(ctx context.Context, w *Warehouse) error
	DeleteWarehouse(ctx context.Context, id int64) (bool, error)
}

// Tx is a unit of work. Stock and transfer rows returned by the Lock* and
// GetOrCreate methods stay locked until the unit of work ends.
type Tx interface {
	GetItem(ctx context.Context, id int64) (*InventoryItem, error)
	GetWarehouse(ctx context.Context, id int64) (*Warehouse, error)

	// LockStocks locks the stock rows of itemID in the given warehouses, always in
	// ascending warehouse id order. Absent rows are missing from the result.
	LockStocks(ctx context.Context, itemID int64, warehouseIDs ...int64) (map[int64]*Stock, error)
	// GetOrCreateStock returns the locked row for (warehouseID, itemID), inserting a
	// zero row first when none exists. Concurrent creators converge on one row.
	GetOrCreateStock(ctx context.Context, warehouseID, itemID int64) (*Stock, error)
	SaveStock(ctx context.Context, s *Stock) error

	LockTransfer(ctx context.Context, id int64) (*StockTransfer, error)
	InsertTransfer(ctx context.Context, t *StockTransfer) error
	UpdateTransfer(ctx context.Context, t *StockTransfer) error
	DeleteTransfer(ctx context.Context, id int64) error

	// Savepoint runs fn in a nested scope. When fn fails, its writes and hooks are
	// discarded and the enclosing Tx stays usable.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error

	// AfterCommit registers fn to run once the outermost unit of work commits.
	// Hooks of a rolled-back unit of work never run.
	AfterCommit(fn func())
}
