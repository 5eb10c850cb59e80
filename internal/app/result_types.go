package app

import "inventory-transfer/internal/core"

// TransferResult is returned by transfer lifecycle operations.
type TransferResult struct {
	Transfer   *core.StockTransfer `json:"transfer"`
	CanExecute bool                `json:"can_execute"`
}

// StockResult is returned by the stock endpoints.
type StockResult struct {
	Stock           *core.Stock `json:"stock"`
	StockPercentage float64     `json:"stock_percentage"`
}

// WarehouseListResult is returned by ListWarehouses.
type WarehouseListResult struct {
	Warehouses []core.Warehouse `json:"warehouses"`
}

// WarehouseInventoryResult is returned by WarehouseInventory.
type WarehouseInventoryResult struct {
	Warehouse *core.Warehouse           `json:"warehouse"`
	Inventory []core.WarehouseStockLine `json:"inventory"`
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []core.InventoryItem `json:"items"`
}

// LowStockResult is returned by LowStockItems.
type LowStockResult struct {
	Items []core.LowStockItem `json:"items"`
}

// DeleteResult tells whether a delete removed the row or only deactivated it.
type DeleteResult struct {
	Deactivated bool `json:"deactivated"`
}

// UserSession is the identity established by a successful login.
type UserSession struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
