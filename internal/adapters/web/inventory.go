package web

import (
	"context"
	"net/http"

	"inventory-transfer/internal/app"
	"inventory-transfer/internal/core"
)

// ── Warehouses ───────────────────────────────────────────────────────────────

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListWarehouses(r.Context())
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Warehouses, "")
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req app.CreateWarehouseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	wh, err := h.svc.CreateWarehouse(r.Context(), req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wh, "Warehouse created successfully")
}

func (h *Handler) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wh, err := h.svc.GetWarehouse(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh, "")
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateWarehouseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	wh, err := h.svc.UpdateWarehouse(r.Context(), id, req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh, "Warehouse updated successfully")
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DeleteWarehouse(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	msg := "Warehouse deleted successfully"
	if res.Deactivated {
		msg = "Warehouse has stock or transfers and was deactivated"
	}
	writeJSON(w, http.StatusOK, res, msg)
}

func (h *Handler) warehouseInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.WarehouseInventory(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, "")
}

// ── Items ────────────────────────────────────────────────────────────────────

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListItems(r.Context())
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Items, "")
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req app.CreateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateItem(r.Context(), req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item, "Inventory item created successfully")
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item, "")
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), id, req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item, "Inventory item updated successfully")
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DeleteItem(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	msg := "Inventory item deleted successfully"
	if res.Deactivated {
		msg = "Inventory item has stock or transfers and was deactivated"
	}
	writeJSON(w, http.StatusOK, res, msg)
}

func (h *Handler) lowStockItems(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.LowStockItems(r.Context())
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Items, "")
}

// ── Stock ────────────────────────────────────────────────────────────────────

// getStock handles GET /api/stock?warehouse_id=&inventory_item_id=
func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	var warehouseID, itemID int64
	if err := queryInts(r, map[string]any{
		"warehouse_id":      &warehouseID,
		"inventory_item_id": &itemID,
	}); err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	if warehouseID == 0 || itemID == 0 {
		v := &core.ValidationError{}
		if warehouseID == 0 {
			v.Add("warehouse_id", "The warehouse is required.")
		}
		if itemID == 0 {
			v.Add("inventory_item_id", "The inventory item is required.")
		}
		h.writeCoreError(w, r, v)
		return
	}

	res, err := h.svc.GetStock(r.Context(), warehouseID, itemID)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, "")
}

type movementFunc func(app.ApplicationService, context.Context, app.StockMovementRequest) (*app.StockResult, error)

func (h *Handler) stockMovement(op movementFunc, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req app.StockMovementRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := op(h.svc, r.Context(), req)
		if err != nil {
			h.writeCoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res, message)
	}
}
