package core_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-transfer/internal/core"
)

func TestInventory_CreateItemDefaultsAndConflict(t *testing.T) {
	f := newFixture(t)

	item, err := f.inventory.CreateItem(f.ctx, core.InventoryItem{SKU: " GAD-9 ", Name: "Gadget", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, "GAD-9", item.SKU)
	assert.Equal(t, core.DefaultUnit, item.Unit)
	assert.True(t, item.IsActive)

	_, err = f.inventory.CreateItem(f.ctx, core.InventoryItem{SKU: "GAD-9", Name: "Other"})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestInventory_ItemValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.CreateItem(f.ctx, core.InventoryItem{
		Price:         decimal.RequireFromString("1000000"),
		MinStockLevel: -1,
	})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sku")
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "min_stock_level")
}

func TestInventory_WarehouseValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.CreateWarehouse(f.ctx, core.Warehouse{Name: "X", ContactEmail: "not-an-email"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "location")
	assert.Contains(t, verr.Fields, "contact_email")
}

func TestInventory_DeleteDeactivatesReferencedRows(t *testing.T) {
	f := newFixture(t)

	spare, err := f.inventory.CreateItem(f.ctx, core.InventoryItem{SKU: "SPR-1", Name: "Spare"})
	require.NoError(t, err)
	deactivated, err := f.inventory.DeleteItem(f.ctx, spare.ID)
	require.NoError(t, err)
	assert.False(t, deactivated)
	_, err = f.inventory.GetItem(f.ctx, spare.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	f.receive(t, f.warehouseA, 5)
	deactivated, err = f.inventory.DeleteItem(f.ctx, f.item.ID)
	require.NoError(t, err)
	assert.True(t, deactivated)
	got, err := f.inventory.GetItem(f.ctx, f.item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	items, err := f.inventory.ListItems(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	deactivated, err = f.inventory.DeleteWarehouse(f.ctx, f.warehouseA)
	require.NoError(t, err)
	assert.True(t, deactivated)
	deactivated, err = f.inventory.DeleteWarehouse(f.ctx, f.warehouseB)
	require.NoError(t, err)
	assert.False(t, deactivated)

	_, err = f.inventory.DeleteWarehouse(f.ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_UpdateItem(t *testing.T) {
	f := newFixture(t)

	name := "  Widget Pro "
	price := decimal.RequireFromString("15.00")
	minLevel := 0
	sameSKU := "WID-001"
	got, err := f.inventory.UpdateItem(f.ctx, f.item.ID, core.ItemPatch{
		SKU: &sameSKU, Name: &name, Price: &price, MinStockLevel: &minLevel,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", got.Name)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, 0, got.MinStockLevel)
	assert.Equal(t, "WID-001", got.SKU)
	assert.Equal(t, core.DefaultUnit, got.Unit, "untouched fields keep their value")
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	stored, err := f.inventory.GetItem(f.ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", stored.Name)
	assert.Equal(t, f.item.CreatedAt, stored.CreatedAt)
}

func TestInventory_UpdateItemRejects(t *testing.T) {
	f := newFixture(t)

	otherSKU := "WID-002"
	_, err := f.inventory.UpdateItem(f.ctx, f.item.ID, core.ItemPatch{SKU: &otherSKU})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sku")

	negative := -1
	blank := " "
	_, err = f.inventory.UpdateItem(f.ctx, f.item.ID, core.ItemPatch{MinStockLevel: &negative, Name: &blank})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "min_stock_level")
	assert.Contains(t, verr.Fields, "name")

	stored, err := f.inventory.GetItem(f.ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.MinStockLevel, "a rejected update changes nothing")

	_, err = f.inventory.UpdateItem(f.ctx, 999, core.ItemPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_UpdateReactivatesDeactivatedRows(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 5)

	deactivated, err := f.inventory.DeleteItem(f.ctx, f.item.ID)
	require.NoError(t, err)
	require.True(t, deactivated)
	deactivated, err = f.inventory.DeleteWarehouse(f.ctx, f.warehouseA)
	require.NoError(t, err)
	require.True(t, deactivated)

	active := true
	item, err := f.inventory.UpdateItem(f.ctx, f.item.ID, core.ItemPatch{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, item.IsActive)
	w, err := f.inventory.UpdateWarehouse(f.ctx, f.warehouseA, core.WarehousePatch{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, w.IsActive)

	items, err := f.inventory.ListItems(f.ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	_, err = f.ledger.ReceiveStock(f.ctx, f.warehouseA, f.item.ID, 1, nil)
	assert.NoError(t, err, "a reactivated warehouse accepts receipts again")
}

func TestInventory_UpdateWarehouse(t *testing.T) {
	f := newFixture(t)

	location := "Rotterdam"
	email := "ops@example.com"
	w, err := f.inventory.UpdateWarehouse(f.ctx, f.warehouseA, core.WarehousePatch{Location: &location, ContactEmail: &email})
	require.NoError(t, err)
	assert.Equal(t, "Central", w.Name)
	assert.Equal(t, "Rotterdam", w.Location)
	assert.Equal(t, "ops@example.com", w.ContactEmail)

	bad := "nope"
	empty := ""
	_, err = f.inventory.UpdateWarehouse(f.ctx, f.warehouseA, core.WarehousePatch{ContactEmail: &bad, Location: &empty})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "contact_email")
	assert.Contains(t, verr.Fields, "location")

	_, err = f.inventory.UpdateWarehouse(f.ctx, 999, core.WarehousePatch{Location: &location})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_InactiveWarehouseRejectsReceipts(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 5)
	_, err := f.inventory.DeleteWarehouse(f.ctx, f.warehouseA)
	require.NoError(t, err)

	_, err = f.ledger.ReceiveStock(f.ctx, f.warehouseA, f.item.ID, 1, nil)
	assert.True(t, core.IsValidation(err))
}

func TestInventory_WarehouseInventoryView(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 40)
	_, err := f.ledger.ReserveStock(f.ctx, f.warehouseA, f.item.ID, 32)
	require.NoError(t, err)

	lines, err := f.inventory.WarehouseInventory(f.ctx, f.warehouseA)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "WID-001", lines[0].Item.SKU)
	assert.Equal(t, 8, lines[0].AvailableQuantity)
	assert.Equal(t, 20.0, lines[0].StockPercentage)
	assert.True(t, lines[0].IsLowStock)

	_, err = f.inventory.WarehouseInventory(f.ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_LowStockReport(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 4)
	f.receive(t, f.warehouseB, 50)

	healthy, err := f.inventory.CreateItem(f.ctx, core.InventoryItem{SKU: "OK-1", Name: "Plenty", MinStockLevel: 1})
	require.NoError(t, err)
	_, err = f.ledger.ReceiveStock(f.ctx, f.warehouseA, healthy.ID, 30, nil)
	require.NoError(t, err)

	report, err := f.inventory.LowStockReport(f.ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, f.item.ID, report[0].ItemID)
	assert.Equal(t, 54, report[0].TotalAvailable)
	require.Len(t, report[0].Warehouses, 2)
	assert.Equal(t, "Central", report[0].Warehouses[0].Warehouse)
	assert.Equal(t, 4, report[0].Warehouses[0].AvailableQuantity)
}
