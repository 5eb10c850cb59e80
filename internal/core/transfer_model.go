package core

import (
	"time"
)

// TransferStatus is the lifecycle state of a StockTransfer.
//
//	pending → completed   (Execute)
//	pending → cancelled   (Cancel)
//
// completed and cancelled are terminal. in_transit is reserved for multi-step
// transfers and is not reachable from any operation.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferInTransit, TransferCompleted, TransferCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// StockTransfer moves Quantity units of one item from one warehouse to another.
type StockTransfer struct {
	ID              int64          `json:"id"`
	FromWarehouseID int64          `json:"from_warehouse_id"`
	ToWarehouseID   int64          `json:"to_warehouse_id"`
	ItemID          int64          `json:"inventory_item_id"`
	Quantity        int            `json:"quantity"`
	Status          TransferStatus `json:"status"`
	Notes           string         `json:"notes"`
	CreatedBy       *int64         `json:"created_by,omitempty"`
	TransferredAt   *time.Time     `json:"transferred_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewTransferInput is the input for TransferService.CreateTransfer.
type NewTransferInput struct {
	FromWarehouseID int64
	ToWarehouseID   int64
	ItemID          int64
	Quantity        int
	Notes           string
	CreatedBy       *int64
}

// TransferFilter holds the predicate fields for listing transfers. Zero values match all.
// WarehouseID matches transfers on either side.
type TransferFilter struct {
	Status      TransferStatus
	WarehouseID int64
	ItemID      int64
	Page        int
	PerPage     int
}

// DefaultPerPage is the page size used when a filter does not set one.
const DefaultPerPage = 15

// MaxPerPage caps the page size a caller may ask for.
const MaxPerPage = 100

// Normalize fills paging defaults.
func (f TransferFilter) Normalize() TransferFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

// Offset is the number of rows to skip for the current page.
func (f TransferFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// Matches applies the filter predicate to t, ignoring paging.
func (f TransferFilter) Matches(t *StockTransfer) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.WarehouseID != 0 && t.FromWarehouseID != f.WarehouseID && t.ToWarehouseID != f.WarehouseID {
		return false
	}
	if f.ItemID != 0 && t.ItemID != f.ItemID {
		return false
	}
	return true
}

// TransferPage is one page of a transfer listing, newest first.
type TransferPage struct {
	Transfers []StockTransfer `json:"data"`
	Total     int             `json:"total"`
	Page      int             `json:"current_page"`
	PerPage   int             `json:"per_page"`
	LastPage  int             `json:"last_page"`
}

// NewTransferPage computes LastPage from total and the normalized filter.
func NewTransferPage(transfers []StockTransfer, total int, f TransferFilter) *TransferPage {
	last := 1
	if total > 0 {
		last = (total + f.PerPage - 1) / f.PerPage
	}
	if transfers == nil {
		transfers = []StockTransfer{}
	}
	return &TransferPage{
		Transfers: transfers,
		Total:     total,
		Page:      f.Page,
		PerPage:   f.PerPage,
		LastPage:  last,
	}
}

// TransferStats summarizes transfer counts.
type TransferStats struct {
	TotalTransfers        int `json:"total_transfers"`
	PendingTransfers      int `json:"pending_transfers"`
	CompletedTransfers    int `json:"completed_transfers"`
	CancelledTransfers    int `json:"cancelled_transfers"`
	TotalItemsTransferred int `json:"total_items_transferred"`
}
