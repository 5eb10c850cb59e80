package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockLedger is the standalone face of the ledger. Each call is its own unit of work.
type StockLedger interface {
	// GetStock returns the row for (warehouseID, itemID). An absent row is reported
	// as a zero Stock with ID 0.
	GetStock(ctx context.Context, warehouseID, itemID int64) (*Stock, error)
	ReserveStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error)
	ReleaseStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error)
	// ReceiveStock books a goods receipt, creating the row when the warehouse has none.
	// unitCost, when non-nil, replaces the row's unit cost.
	ReceiveStock(ctx context.Context, warehouseID, itemID int64, qty int, unitCost *decimal.Decimal) (*Stock, error)
	IssueStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error)
}

// Ledger owns every stock mutation. The Tx-scoped methods act on rows the caller has
// already locked; they persist the row and notify the observer before returning.
type Ledger struct {
	store    Store
	observer StockObserver
	now      func() time.Time
}

func NewLedger(store Store, observer StockObserver) *Ledger {
	return &Ledger{store: store, observer: observer, now: time.Now}
}

// ── TX-scoped operations ─────────────────────────────────────────────────────

func (l *Ledger) ReserveTx(ctx context.Context, tx Tx, s *Stock, qty int) error {
	return l.apply(ctx, tx, s, OpReserve, qty, func(now time.Time) error { return s.Reserve(qty) })
}

func (l *Ledger) ReleaseTx(ctx context.Context, tx Tx, s *Stock, qty int) error {
	return l.apply(ctx, tx, s, OpRelease, qty, func(now time.Time) error { return s.Release(qty) })
}

func (l *Ledger) AddTx(ctx context.Context, tx Tx, s *Stock, qty int) error {
	return l.apply(ctx, tx, s, OpAdd, qty, func(now time.Time) error { return s.Add(qty, now) })
}

func (l *Ledger) RemoveTx(ctx context.Context, tx Tx, s *Stock, qty int) error {
	return l.apply(ctx, tx, s, OpRemove, qty, func(now time.Time) error { return s.Remove(qty) })
}

// apply mutates s, persists it and notifies the observer. On any failure s is
// restored to its value before the call.
func (l *Ledger) apply(ctx context.Context, tx Tx, s *Stock, op LedgerOp, qty int, mutate func(now time.Time) error) error {
	before := *s
	now := l.now()
	if err := mutate(now); err != nil {
		return err
	}
	s.UpdatedAt = now

	if err := tx.SaveStock(ctx, s); err != nil {
		*s = before
		return fmt.Errorf("failed to persist %s of %d at %s: %w", op, qty, s.Key(), err)
	}
	if l.observer != nil {
		if err := l.observer.StockChanged(ctx, tx, StockChange{Op: op, Quantity: qty, Stock: *s}); err != nil {
			*s = before
			return fmt.Errorf("stock observer after %s at %s: %w", op, s.Key(), err)
		}
	}
	return nil
}

// restoreTx writes a previous image of a row back without notifying observers.
// It is the compensation step of a failed two-sided mutation.
func (l *Ledger) restoreTx(ctx context.Context, tx Tx, s *Stock, image Stock) error {
	current := *s
	*s = image
	s.UpdatedAt = l.now()
	if err := tx.SaveStock(ctx, s); err != nil {
		*s = current
		return err
	}
	return nil
}

// ── Standalone operations ────────────────────────────────────────────────────

func (l *Ledger) GetStock(ctx context.Context, warehouseID, itemID int64) (*Stock, error) {
	s, err := l.store.GetStock(ctx, warehouseID, itemID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	if _, err := l.store.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, fmt.Errorf("warehouse %d: %w", warehouseID, err)
	}
	if _, err := l.store.GetItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, err)
	}
	return &Stock{WarehouseID: warehouseID, ItemID: itemID}, nil
}

func (l *Ledger) ReserveStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error) {
	return l.mutateExisting(ctx, warehouseID, itemID, qty, l.ReserveTx, (*Stock).Reserve)
}

func (l *Ledger) ReleaseStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error) {
	return l.mutateExisting(ctx, warehouseID, itemID, qty, l.ReleaseTx, (*Stock).Release)
}

func (l *Ledger) IssueStock(ctx context.Context, warehouseID, itemID int64, qty int) (*Stock, error) {
	return l.mutateExisting(ctx, warehouseID, itemID, qty, l.RemoveTx, (*Stock).Remove)
}

func (l *Ledger) ReceiveStock(ctx context.Context, warehouseID, itemID int64, qty int, unitCost *decimal.Decimal) (*Stock, error) {
	if err := checkPositive(qty); err != nil {
		return nil, err
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, newValidationError("unit_cost", "unit cost must not be negative")
	}

	var out Stock
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		if err := requireActive(ctx, tx, warehouseID, itemID); err != nil {
			return err
		}
		s, err := tx.GetOrCreateStock(ctx, warehouseID, itemID)
		if err != nil {
			return fmt.Errorf("failed to get or create stock: %w", err)
		}
		if unitCost != nil {
			c := *unitCost
			s.UnitCost = &c
		}
		if err := l.AddTx(ctx, tx, s, qty); err != nil {
			return err
		}
		out = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mutateExisting locks an existing row and applies op to it. An absent row has
// nothing available or reserved.
func (l *Ledger) mutateExisting(ctx context.Context, warehouseID, itemID int64, qty int,
	op func(ctx context.Context, tx Tx, s *Stock, qty int) error, check func(s *Stock, qty int) error) (*Stock, error) {
	if err := checkPositive(qty); err != nil {
		return nil, err
	}

	var out Stock
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		rows, err := tx.LockStocks(ctx, itemID, warehouseID)
		if err != nil {
			return fmt.Errorf("failed to lock stock: %w", err)
		}
		s, ok := rows[warehouseID]
		if !ok {
			if err := requireActive(ctx, tx, warehouseID, itemID); err != nil {
				return err
			}
			zero := &Stock{WarehouseID: warehouseID, ItemID: itemID}
			if err := check(zero, qty); err != nil {
				return err
			}
			return fmt.Errorf("no stock row at %s: %w", zero.Key(), ErrNotFound)
		}
		if err := op(ctx, tx, s, qty); err != nil {
			return err
		}
		out = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// requireActive checks that both ends of a stock row exist and are active.
func requireActive(ctx context.Context, tx Tx, warehouseID, itemID int64) error {
	w, err := tx.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return fmt.Errorf("warehouse %d: %w", warehouseID, err)
	}
	if !w.IsActive {
		return newValidationError("warehouse_id", fmt.Sprintf("warehouse %d is inactive", warehouseID))
	}
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("item %d: %w", itemID, err)
	}
	if !item.IsActive {
		return newValidationError("inventory_item_id", fmt.Sprintf("item %d is inactive", itemID))
	}
	return nil
}
