package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Catalog defaults and limits.
const (
	DefaultUnit          = "piece"
	DefaultMinStockLevel = 10
)

var maxItemPrice = decimal.RequireFromString("999999.99")

// InventoryService manages the item and warehouse catalog and the stock read views.
// Stock mutations belong to the Ledger.
type InventoryService interface {
	CreateItem(ctx context.Context, item InventoryItem) (*InventoryItem, error)
	GetItem(ctx context.Context, id int64) (*InventoryItem, error)
	ListItems(ctx context.Context) ([]InventoryItem, error)
	// UpdateItem applies a partial update. The SKU is immutable.
	UpdateItem(ctx context.Context, id int64, patch ItemPatch) (*InventoryItem, error)
	// DeleteItem removes an item, or deactivates it when stock or transfers reference it.
	DeleteItem(ctx context.Context, id int64) (deactivated bool, err error)

	CreateWarehouse(ctx context.Context, w Warehouse) (*Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (*Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, patch WarehousePatch) (*Warehouse, error)
	DeleteWarehouse(ctx context.Context, id int64) (deactivated bool, err error)

	// WarehouseInventory lists every stock row of one warehouse with its derived figures.
	WarehouseInventory(ctx context.Context, warehouseID int64) ([]WarehouseStockLine, error)
	// LowStockReport lists items with at least one warehouse at or below min_stock_level.
	LowStockReport(ctx context.Context) ([]LowStockItem, error)
}

// ItemPatch carries the fields of an item update; nil fields are left unchanged.
// SKU may only repeat the current value.
type ItemPatch struct {
	SKU           *string
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Category      *string
	Brand         *string
	Unit          *string
	MinStockLevel *int
	IsActive      *bool
}

// WarehousePatch carries the fields of a warehouse update; nil fields are left unchanged.
type WarehousePatch struct {
	Name          *string
	Location      *string
	Description   *string
	ContactPerson *string
	ContactEmail  *string
	ContactPhone  *string
	IsActive      *bool
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

type inventoryService struct {
	store Store
	now   func() time.Time
}

func NewInventoryService(store Store) InventoryService {
	return &inventoryService{store: store, now: time.Now}
}

// Validate checks the catalog rules for an item.
func (i *InventoryItem) Validate() error {
	v := &ValidationError{}
	switch {
	case strings.TrimSpace(i.SKU) == "":
		v.Add("sku", "The SKU is required.")
	case utf8.RuneCountInString(i.SKU) > 100:
		v.Add("sku", "The SKU may not be greater than 100 characters.")
	}
	switch {
	case strings.TrimSpace(i.Name) == "":
		v.Add("name", "The name is required.")
	case utf8.RuneCountInString(i.Name) > 255:
		v.Add("name", "The name may not be greater than 255 characters.")
	}
	if i.Price.IsNegative() || i.Price.GreaterThan(maxItemPrice) {
		v.Add("price", "The price must be between 0 and 999999.99.")
	}
	if i.MinStockLevel < 0 {
		v.Add("min_stock_level", "The minimum stock level must be at least 0.")
	}
	for field, val := range map[string]string{"category": i.Category, "brand": i.Brand, "unit": i.Unit} {
		if utf8.RuneCountInString(val) > 100 {
			v.Add(field, fmt.Sprintf("The %s may not be greater than 100 characters.", field))
		}
	}
	return v.OrNil()
}

// Validate checks the catalog rules for a warehouse.
func (w *Warehouse) Validate() error {
	v := &ValidationError{}
	switch {
	case strings.TrimSpace(w.Name) == "":
		v.Add("name", "The name is required.")
	case utf8.RuneCountInString(w.Name) > 255:
		v.Add("name", "The name may not be greater than 255 characters.")
	}
	switch {
	case strings.TrimSpace(w.Location) == "":
		v.Add("location", "The location is required.")
	case utf8.RuneCountInString(w.Location) > 255:
		v.Add("location", "The location may not be greater than 255 characters.")
	}
	if w.ContactEmail != "" {
		if _, err := mail.ParseAddress(w.ContactEmail); err != nil {
			v.Add("contact_email", "The contact email must be a valid email address.")
		}
	}
	if utf8.RuneCountInString(w.ContactPhone) > 50 {
		v.Add("contact_phone", "The contact phone may not be greater than 50 characters.")
	}
	return v.OrNil()
}

// ── Items ────────────────────────────────────────────────────────────────────

func (s *inventoryService) CreateItem(ctx context.Context, item InventoryItem) (*InventoryItem, error) {
	item.SKU = strings.TrimSpace(item.SKU)
	item.Name = strings.TrimSpace(item.Name)
	if item.Unit == "" {
		item.Unit = DefaultUnit
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	item.IsActive = true
	item.CreatedAt, item.UpdatedAt = now, now
	if err := s.store.CreateItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("failed to create item %s: %w", item.SKU, err)
	}
	return &item, nil
}

func (s *inventoryService) GetItem(ctx context.Context, id int64) (*InventoryItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context) ([]InventoryItem, error) {
	items, err := s.store.ListItems(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, id int64, patch ItemPatch) (*InventoryItem, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.SKU != nil && strings.TrimSpace(*patch.SKU) != item.SKU {
		return nil, newValidationError("sku", "The SKU cannot be changed.")
	}

	setIf(&item.Name, patch.Name)
	setIf(&item.Description, patch.Description)
	setIf(&item.Price, patch.Price)
	setIf(&item.Category, patch.Category)
	setIf(&item.Brand, patch.Brand)
	setIf(&item.Unit, patch.Unit)
	setIf(&item.MinStockLevel, patch.MinStockLevel)
	setIf(&item.IsActive, patch.IsActive)
	item.Name = strings.TrimSpace(item.Name)
	if item.Unit == "" {
		item.Unit = DefaultUnit
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	item.UpdatedAt = s.now()
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", id, err)
	}
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id int64) (bool, error) {
	deactivated, err := s.store.DeleteItem(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	return deactivated, nil
}

// ── Warehouses ───────────────────────────────────────────────────────────────

func (s *inventoryService) CreateWarehouse(ctx context.Context, w Warehouse) (*Warehouse, error) {
	w.Name = strings.TrimSpace(w.Name)
	w.Location = strings.TrimSpace(w.Location)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	w.IsActive = true
	w.CreatedAt, w.UpdatedAt = now, now
	if err := s.store.CreateWarehouse(ctx, &w); err != nil {
		return nil, fmt.Errorf("failed to create warehouse %q: %w", w.Name, err)
	}
	return &w, nil
}

func (s *inventoryService) GetWarehouse(ctx context.Context, id int64) (*Warehouse, error) {
	w, err := s.store.GetWarehouse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("warehouse %d: %w", id, err)
	}
	return w, nil
}

func (s *inventoryService) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	ws, err := s.store.ListWarehouses(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	return ws, nil
}

func (s *inventoryService) UpdateWarehouse(ctx context.Context, id int64, patch WarehousePatch) (*Warehouse, error) {
	w, err := s.GetWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}

	setIf(&w.Name, patch.Name)
	setIf(&w.Location, patch.Location)
	setIf(&w.Description, patch.Description)
	setIf(&w.ContactPerson, patch.ContactPerson)
	setIf(&w.ContactEmail, patch.ContactEmail)
	setIf(&w.ContactPhone, patch.ContactPhone)
	setIf(&w.IsActive, patch.IsActive)
	w.Name = strings.TrimSpace(w.Name)
	w.Location = strings.TrimSpace(w.Location)
	if err := w.Validate(); err != nil {
		return nil, err
	}

	w.UpdatedAt = s.now()
	if err := s.store.UpdateWarehouse(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to update warehouse %d: %w", id, err)
	}
	return w, nil
}

func (s *inventoryService) DeleteWarehouse(ctx context.Context, id int64) (bool, error) {
	deactivated, err := s.store.DeleteWarehouse(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete warehouse %d: %w", id, err)
	}
	return deactivated, nil
}

// ── Stock views ──────────────────────────────────────────────────────────────

func (s *inventoryService) WarehouseInventory(ctx context.Context, warehouseID int64) ([]WarehouseStockLine, error) {
	if _, err := s.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	lines, err := s.store.ListWarehouseStock(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock for warehouse %d: %w", warehouseID, err)
	}
	for i := range lines {
		st := Stock{Quantity: lines[i].Quantity, AvailableQuantity: lines[i].AvailableQuantity}
		lines[i].StockPercentage = st.Percentage()
		lines[i].IsLowStock = st.IsLow(lines[i].Item.MinStockLevel)
	}
	return lines, nil
}

func (s *inventoryService) LowStockReport(ctx context.Context) ([]LowStockItem, error) {
	items, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build low-stock report: %w", err)
	}
	return items, nil
}
