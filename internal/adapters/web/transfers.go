package web

import (
	"net/http"

	"inventory-transfer/internal/app"
)

// listTransfers handles GET /api/stock-transfers?status=&warehouse_id=&inventory_item_id=&page=&per_page=
func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	req := app.ListTransfersRequest{Status: r.URL.Query().Get("status")}
	if err := queryInts(r, map[string]any{
		"warehouse_id":      &req.WarehouseID,
		"inventory_item_id": &req.ItemID,
		"page":              &req.Page,
		"per_page":          &req.PerPage,
	}); err != nil {
		h.writeCoreError(w, r, err)
		return
	}

	page, err := h.svc.ListTransfers(r.Context(), req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page, "")
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req app.CreateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if claims := authFromContext(r.Context()); claims != nil && claims.UserID > 0 {
		uid := claims.UserID
		req.CreatedBy = &uid
	}

	res, err := h.svc.CreateTransfer(r.Context(), req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Transfer, "Stock transfer created successfully")
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GetTransfer(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, "")
}

func (h *Handler) updateTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateTransferNotes(r.Context(), id, req)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Transfer, "Stock transfer updated successfully")
}

func (h *Handler) deleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransfer(r.Context(), id); err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Stock transfer deleted successfully")
}

func (h *Handler) executeTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ExecuteTransfer(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Transfer, "Stock transfer executed successfully")
}

func (h *Handler) cancelTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CancelTransfer(r.Context(), id)
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Transfer, "Stock transfer cancelled successfully")
}

func (h *Handler) transferStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.TransferStatistics(r.Context())
	if err != nil {
		h.writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats, "")
}
