package app

import (
	"github.com/shopspring/decimal"

	"inventory-transfer/internal/core"
)

// CreateTransferRequest is the input for creating a pending stock transfer.
type CreateTransferRequest struct {
	FromWarehouseID int64  `json:"from_warehouse_id" jsonschema:"required,minimum=1"`
	ToWarehouseID   int64  `json:"to_warehouse_id" jsonschema:"required,minimum=1"`
	ItemID          int64  `json:"inventory_item_id" jsonschema:"required,minimum=1"`
	Quantity        int    `json:"quantity" jsonschema:"required,minimum=1"`
	Notes           string `json:"notes,omitempty" jsonschema:"maxLength=1000"`
	CreatedBy       *int64 `json:"-"`
}

func (r CreateTransferRequest) input() core.NewTransferInput {
	return core.NewTransferInput{
		FromWarehouseID: r.FromWarehouseID,
		ToWarehouseID:   r.ToWarehouseID,
		ItemID:          r.ItemID,
		Quantity:        r.Quantity,
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
	}
}

// UpdateTransferRequest edits a pending transfer. Only notes are mutable.
type UpdateTransferRequest struct {
	Notes string `json:"notes" jsonschema:"maxLength=1000"`
}

// ListTransfersRequest carries the query-string filters of the transfer list.
type ListTransfersRequest struct {
	Status      string `json:"status,omitempty" jsonschema:"enum=pending,enum=in_transit,enum=completed,enum=cancelled"`
	WarehouseID int64  `json:"warehouse_id,omitempty"`
	ItemID      int64  `json:"inventory_item_id,omitempty"`
	Page        int    `json:"page,omitempty" jsonschema:"minimum=1"`
	PerPage     int    `json:"per_page,omitempty" jsonschema:"minimum=1,maximum=100"`
}

func (r ListTransfersRequest) filter() core.TransferFilter {
	return core.TransferFilter{
		Status:      core.TransferStatus(r.Status),
		WarehouseID: r.WarehouseID,
		ItemID:      r.ItemID,
		Page:        r.Page,
		PerPage:     r.PerPage,
	}
}

// StockMovementRequest is the input for receive, issue, reserve and release.
// UnitCost is only read by receive.
type StockMovementRequest struct {
	WarehouseID int64            `json:"warehouse_id" jsonschema:"required,minimum=1"`
	ItemID      int64            `json:"inventory_item_id" jsonschema:"required,minimum=1"`
	Quantity    int              `json:"quantity" jsonschema:"required,minimum=1"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty" jsonschema:"type=string"`
}

func (r StockMovementRequest) validate() error {
	v := &core.ValidationError{}
	if r.WarehouseID <= 0 {
		v.Add("warehouse_id", "The warehouse is required.")
	}
	if r.ItemID <= 0 {
		v.Add("inventory_item_id", "The inventory item is required.")
	}
	if r.Quantity <= 0 {
		v.Add("quantity", "The quantity must be at least 1.")
	}
	if r.UnitCost != nil && r.UnitCost.IsNegative() {
		v.Add("unit_cost", "The unit cost must be at least 0.")
	}
	return v.OrNil()
}

// CreateItemRequest is the input for adding a catalog item.
// A nil MinStockLevel takes the catalog default.
type CreateItemRequest struct {
	SKU           string          `json:"sku" jsonschema:"required,maxLength=100"`
	Name          string          `json:"name" jsonschema:"required,maxLength=255"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price" jsonschema:"type=string"`
	Category      string          `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	MinStockLevel *int            `json:"min_stock_level,omitempty" jsonschema:"minimum=0"`
}

func (r CreateItemRequest) item() core.InventoryItem {
	minLevel := core.DefaultMinStockLevel
	if r.MinStockLevel != nil {
		minLevel = *r.MinStockLevel
	}
	return core.InventoryItem{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Category:      r.Category,
		Brand:         r.Brand,
		Unit:          r.Unit,
		MinStockLevel: minLevel,
	}
}

// UpdateItemRequest is a partial item update. Absent fields keep their value.
// SKU is accepted only when it matches the stored one.
type UpdateItemRequest struct {
	SKU           *string          `json:"sku,omitempty" jsonschema:"maxLength=100"`
	Name          *string          `json:"name,omitempty" jsonschema:"maxLength=255"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty" jsonschema:"type=string"`
	Category      *string          `json:"category,omitempty"`
	Brand         *string          `json:"brand,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	MinStockLevel *int             `json:"min_stock_level,omitempty" jsonschema:"minimum=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

func (r UpdateItemRequest) patch() core.ItemPatch {
	return core.ItemPatch{
		SKU:           r.SKU,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Category:      r.Category,
		Brand:         r.Brand,
		Unit:          r.Unit,
		MinStockLevel: r.MinStockLevel,
		IsActive:      r.IsActive,
	}
}

// CreateWarehouseRequest is the input for adding a warehouse.
type CreateWarehouseRequest struct {
	Name          string `json:"name" jsonschema:"required,maxLength=255"`
	Location      string `json:"location" jsonschema:"required"`
	Description   string `json:"description,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty" jsonschema:"format=email"`
	ContactPhone  string `json:"contact_phone,omitempty" jsonschema:"maxLength=50"`
}

func (r CreateWarehouseRequest) warehouse() core.Warehouse {
	return core.Warehouse{
		Name:          r.Name,
		Location:      r.Location,
		Description:   r.Description,
		ContactPerson: r.ContactPerson,
		ContactEmail:  r.ContactEmail,
		ContactPhone:  r.ContactPhone,
	}
}

// UpdateWarehouseRequest is a partial warehouse update. Absent fields keep their value.
type UpdateWarehouseRequest struct {
	Name          *string `json:"name,omitempty" jsonschema:"maxLength=255"`
	Location      *string `json:"location,omitempty"`
	Description   *string `json:"description,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	ContactEmail  *string `json:"contact_email,omitempty" jsonschema:"format=email"`
	ContactPhone  *string `json:"contact_phone,omitempty" jsonschema:"maxLength=50"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

func (r UpdateWarehouseRequest) patch() core.WarehousePatch {
	return core.WarehousePatch{
		Name:          r.Name,
		Location:      r.Location,
		Description:   r.Description,
		ContactPerson: r.ContactPerson,
		ContactEmail:  r.ContactEmail,
		ContactPhone:  r.ContactPhone,
		IsActive:      r.IsActive,
	}
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Username string `json:"username" jsonschema:"required"`
	Password string `json:"password" jsonschema:"required"`
}
