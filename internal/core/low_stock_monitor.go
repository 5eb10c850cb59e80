package core

import (
	"context"
	"fmt"
	"time"
)

// LedgerOp names a stock mutation.
type LedgerOp string

const (
	OpReserve LedgerOp = "reserve"
	OpRelease LedgerOp = "release"
	OpAdd     LedgerOp = "add"
	OpRemove  LedgerOp = "remove"
)

// StockChange describes one persisted ledger mutation. Stock is the row after the change.
type StockChange struct {
	Op       LedgerOp
	Quantity int
	Stock    Stock
}

// StockObserver is called by the Ledger after every successful mutation, inside the
// same unit of work. Returning an error aborts the unit of work.
type StockObserver interface {
	StockChanged(ctx context.Context, tx Tx, change StockChange) error
}

// StockObserverFunc adapts a function to StockObserver.
type StockObserverFunc func(ctx context.Context, tx Tx, change StockChange) error

func (f StockObserverFunc) StockChanged(ctx context.Context, tx Tx, change StockChange) error {
	return f(ctx, tx, change)
}

// Observers fans a change out to several observers in order, stopping at the first error.
type Observers []StockObserver

func (o Observers) StockChanged(ctx context.Context, tx Tx, change StockChange) error {
	for _, obs := range o {
		if obs == nil {
			continue
		}
		if err := obs.StockChanged(ctx, tx, change); err != nil {
			return err
		}
	}
	return nil
}

// LowStockDetected is emitted when a stock row's available quantity is at or below
// the item's min_stock_level after a committed mutation.
type LowStockDetected struct {
	StockID           int64     `json:"stock_id"`
	ItemID            int64     `json:"inventory_item_id"`
	WarehouseID       int64     `json:"warehouse_id"`
	AvailableQuantity int       `json:"available_quantity"`
	MinStockLevel     int       `json:"min_stock_level"`
	SKU               string    `json:"sku"`
	ItemName          string    `json:"item_name"`
	WarehouseName     string    `json:"warehouse_name"`
	DetectedAt        time.Time `json:"detected_at"`
}

// Emitter receives low-stock events. Emit must not block for long; it runs after
// commit on the request goroutine.
type Emitter interface {
	Emit(evt LowStockDetected)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(evt LowStockDetected)

func (f EmitterFunc) Emit(evt LowStockDetected) { f(evt) }

// LowStockMonitor evaluates the low-stock rule on every mutation. It is level-triggered:
// each qualifying mutation produces one event, whether or not the row was already low.
type LowStockMonitor struct {
	emitter Emitter
	now     func() time.Time
}

func NewLowStockMonitor(emitter Emitter) *LowStockMonitor {
	return &LowStockMonitor{emitter: emitter, now: time.Now}
}

func (m *LowStockMonitor) StockChanged(ctx context.Context, tx Tx, change StockChange) error {
	item, err := tx.GetItem(ctx, change.Stock.ItemID)
	if err != nil {
		return fmt.Errorf("low-stock check for %s: %w", change.Stock.Key(), err)
	}
	if !change.Stock.IsLow(item.MinStockLevel) {
		return nil
	}

	evt := LowStockDetected{
		StockID:           change.Stock.ID,
		ItemID:            item.ID,
		WarehouseID:       change.Stock.WarehouseID,
		AvailableQuantity: change.Stock.AvailableQuantity,
		MinStockLevel:     item.MinStockLevel,
		SKU:               item.SKU,
		ItemName:          item.Name,
		DetectedAt:        m.now(),
	}
	if w, err := tx.GetWarehouse(ctx, change.Stock.WarehouseID); err == nil {
		evt.WarehouseName = w.Name
	}

	tx.AfterCommit(func() { m.emitter.Emit(evt) })
	return nil
}
