package app

import (
	"context"

	"inventory-transfer/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// CreateTransfer validates the request against current availability and records
	// a pending transfer.
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*TransferResult, error)

	// GetTransfer returns a transfer together with whether it can execute right now.
	GetTransfer(ctx context.Context, id int64) (*TransferResult, error)

	// ListTransfers returns one page of transfers, newest first.
	ListTransfers(ctx context.Context, req ListTransfersRequest) (*core.TransferPage, error)

	// ExecuteTransfer moves the stock and completes the transfer.
	ExecuteTransfer(ctx context.Context, id int64) (*TransferResult, error)

	// CancelTransfer cancels a pending transfer.
	CancelTransfer(ctx context.Context, id int64) (*TransferResult, error)

	// UpdateTransferNotes replaces the notes of a pending transfer.
	UpdateTransferNotes(ctx context.Context, id int64, req UpdateTransferRequest) (*TransferResult, error)

	// DeleteTransfer removes a pending transfer.
	DeleteTransfer(ctx context.Context, id int64) error

	// TransferStatistics returns counts by status and the total quantity moved.
	TransferStatistics(ctx context.Context) (*core.TransferStats, error)

	// GetStock returns the stock row of one item in one warehouse; zero when absent.
	GetStock(ctx context.Context, warehouseID, itemID int64) (*StockResult, error)

	// ReceiveStock books a goods receipt into a warehouse.
	ReceiveStock(ctx context.Context, req StockMovementRequest) (*StockResult, error)

	// IssueStock takes available stock out of a warehouse.
	IssueStock(ctx context.Context, req StockMovementRequest) (*StockResult, error)

	ReserveStock(ctx context.Context, req StockMovementRequest) (*StockResult, error)
	ReleaseStock(ctx context.Context, req StockMovementRequest) (*StockResult, error)

	ListWarehouses(ctx context.Context) (*WarehouseListResult, error)
	GetWarehouse(ctx context.Context, id int64) (*core.Warehouse, error)
	CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*core.Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, req UpdateWarehouseRequest) (*core.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id int64) (*DeleteResult, error)

	// WarehouseInventory returns the stock lines of a warehouse, served from cache when fresh.
	WarehouseInventory(ctx context.Context, id int64) (*WarehouseInventoryResult, error)

	ListItems(ctx context.Context) (*ItemListResult, error)
	GetItem(ctx context.Context, id int64) (*core.InventoryItem, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*core.InventoryItem, error)
	// UpdateItem edits catalog fields; a new min_stock_level applies to the next stock change.
	UpdateItem(ctx context.Context, id int64, req UpdateItemRequest) (*core.InventoryItem, error)
	DeleteItem(ctx context.Context, id int64) (*DeleteResult, error)

	// LowStockItems lists items with at least one warehouse at or below min_stock_level.
	LowStockItems(ctx context.Context) (*LowStockResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int64) (*UserResult, error)
}
