package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNotesLength bounds StockTransfer.Notes, in characters.
const MaxNotesLength = 1000

// TransferService manages the stock transfer lifecycle.
type TransferService interface {
	// CreateTransfer records a pending transfer. It does not touch the ledger.
	CreateTransfer(ctx context.Context, in NewTransferInput) (*StockTransfer, error)
	GetTransfer(ctx context.Context, id int64) (*StockTransfer, error)
	ListTransfers(ctx context.Context, f TransferFilter) (*TransferPage, error)
	Statistics(ctx context.Context) (*TransferStats, error)

	// CanExecute is read-only: pending, source row present, enough available.
	CanExecute(ctx context.Context, id int64) (bool, error)
	// Execute transitions pending → completed, moving the quantity from the source
	// to the destination in one unit of work.
	Execute(ctx context.Context, id int64) (*StockTransfer, error)
	// Cancel transitions pending → cancelled. The ledger is not touched.
	Cancel(ctx context.Context, id int64) (*StockTransfer, error)

	// UpdateNotes and DeleteTransfer are only allowed while pending.
	UpdateNotes(ctx context.Context, id int64, notes string) (*StockTransfer, error)
	DeleteTransfer(ctx context.Context, id int64) error
}

type transferService struct {
	store  Store
	ledger *Ledger
	now    func() time.Time
}

func NewTransferService(store Store, ledger *Ledger) TransferService {
	return &transferService{store: store, ledger: ledger, now: time.Now}
}

// Validate checks the structural rules of a new transfer.
func (in NewTransferInput) Validate() error {
	v := &ValidationError{}
	if in.FromWarehouseID <= 0 {
		v.Add("from_warehouse_id", "The source warehouse is required.")
	}
	if in.ToWarehouseID <= 0 {
		v.Add("to_warehouse_id", "The destination warehouse is required.")
	}
	if in.FromWarehouseID > 0 && in.FromWarehouseID == in.ToWarehouseID {
		v.Add("to_warehouse_id", "Source and destination warehouses must be different.")
	}
	if in.ItemID <= 0 {
		v.Add("inventory_item_id", "The inventory item is required.")
	}
	if in.Quantity <= 0 {
		v.Add("quantity", "Transfer quantity must be at least 1.")
	}
	if utf8.RuneCountInString(in.Notes) > MaxNotesLength {
		v.Add("notes", fmt.Sprintf("Notes cannot exceed %d characters.", MaxNotesLength))
	}
	return v.OrNil()
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *transferService) CreateTransfer(ctx context.Context, in NewTransferInput) (*StockTransfer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var t StockTransfer
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		v := &ValidationError{}
		for field, id := range map[string]int64{"from_warehouse_id": in.FromWarehouseID, "to_warehouse_id": in.ToWarehouseID} {
			w, err := tx.GetWarehouse(ctx, id)
			switch {
			case errors.Is(err, ErrNotFound):
				v.Add(field, "The selected warehouse does not exist.")
			case err != nil:
				return fmt.Errorf("failed to load warehouse %d: %w", id, err)
			case !w.IsActive:
				v.Add(field, "The selected warehouse is inactive.")
			}
		}
		item, err := tx.GetItem(ctx, in.ItemID)
		switch {
		case errors.Is(err, ErrNotFound):
			v.Add("inventory_item_id", "The selected inventory item does not exist.")
		case err != nil:
			return fmt.Errorf("failed to load item %d: %w", in.ItemID, err)
		case !item.IsActive:
			v.Add("inventory_item_id", "The selected inventory item is inactive.")
		}
		if err := v.OrNil(); err != nil {
			return err
		}

		now := s.now()
		t = StockTransfer{
			FromWarehouseID: in.FromWarehouseID,
			ToWarehouseID:   in.ToWarehouseID,
			ItemID:          in.ItemID,
			Quantity:        in.Quantity,
			Status:          TransferPending,
			Notes:           strings.TrimSpace(in.Notes),
			CreatedBy:       in.CreatedBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertTransfer(ctx, &t); err != nil {
			return fmt.Errorf("failed to insert transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *transferService) CanExecute(ctx context.Context, id int64) (bool, error) {
	t, err := s.GetTransfer(ctx, id)
	if err != nil {
		return false, err
	}
	if t.Status != TransferPending {
		return false, nil
	}
	src, err := s.store.GetStock(ctx, t.FromWarehouseID, t.ItemID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read source stock: %w", err)
	}
	return src.AvailableQuantity >= t.Quantity, nil
}

func (s *transferService) Execute(ctx context.Context, id int64) (*StockTransfer, error) {
	var out StockTransfer
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		t, err := tx.LockTransfer(ctx, id)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", id, err)
		}
		if t.Status != TransferPending {
			return fmt.Errorf("transfer %d cannot be executed: status is %s (must be pending): %w", id, t.Status, ErrInvalidState)
		}

		rows, err := tx.LockStocks(ctx, t.ItemID, t.FromWarehouseID, t.ToWarehouseID)
		if err != nil {
			return fmt.Errorf("failed to lock stock for transfer %d: %w", id, err)
		}
		source, ok := rows[t.FromWarehouseID]
		if !ok {
			return fmt.Errorf("transfer %d: no stock of item %d in warehouse %d: %w (available 0)",
				id, t.ItemID, t.FromWarehouseID, ErrInsufficientAvailable)
		}
		sourceImage := *source

		if err := s.ledger.RemoveTx(ctx, tx, source, t.Quantity); err != nil {
			return fmt.Errorf("transfer %d: debit source: %w", id, err)
		}

		credit := func(sp Tx) error {
			dest, ok := rows[t.ToWarehouseID]
			if !ok {
				if dest, err = sp.GetOrCreateStock(ctx, t.ToWarehouseID, t.ItemID); err != nil {
					return fmt.Errorf("failed to get or create destination stock: %w", err)
				}
			}
			return s.ledger.AddTx(ctx, sp, dest, t.Quantity)
		}
		if err := tx.Savepoint(ctx, credit); err != nil {
			if cerr := s.ledger.restoreTx(ctx, tx, source, sourceImage); cerr != nil {
				return fmt.Errorf("transfer %d: credit destination failed (%v) and source compensation failed: %w: %v",
					id, err, ErrInconsistentState, cerr)
			}
			return fmt.Errorf("transfer %d: credit destination: %w", id, err)
		}

		now := s.now()
		t.Status = TransferCompleted
		t.TransferredAt = &now
		t.UpdatedAt = now
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return fmt.Errorf("failed to complete transfer %d: %w", id, err)
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *transferService) Cancel(ctx context.Context, id int64) (*StockTransfer, error) {
	return s.updatePending(ctx, id, "cancelled", func(t *StockTransfer) error {
		t.Status = TransferCancelled
		return nil
	})
}

func (s *transferService) UpdateNotes(ctx context.Context, id int64, notes string) (*StockTransfer, error) {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, newValidationError("notes", fmt.Sprintf("Notes cannot exceed %d characters.", MaxNotesLength))
	}
	return s.updatePending(ctx, id, "updated", func(t *StockTransfer) error {
		t.Notes = strings.TrimSpace(notes)
		return nil
	})
}

// updatePending locks a transfer, requires it to be pending and persists fn's change.
func (s *transferService) updatePending(ctx context.Context, id int64, verb string, fn func(t *StockTransfer) error) (*StockTransfer, error) {
	var out StockTransfer
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		t, err := tx.LockTransfer(ctx, id)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", id, err)
		}
		if t.Status != TransferPending {
			return fmt.Errorf("transfer %d cannot be %s: status is %s (must be pending): %w", id, verb, t.Status, ErrInvalidState)
		}
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = s.now()
		if err := tx.UpdateTransfer(ctx, t); err != nil {
			return fmt.Errorf("failed to update transfer %d: %w", id, err)
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *transferService) DeleteTransfer(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(tx Tx) error {
		t, err := tx.LockTransfer(ctx, id)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", id, err)
		}
		if t.Status != TransferPending {
			return fmt.Errorf("transfer %d cannot be deleted: status is %s (must be pending): %w", id, t.Status, ErrInvalidState)
		}
		if err := tx.DeleteTransfer(ctx, id); err != nil {
			return fmt.Errorf("failed to delete transfer %d: %w", id, err)
		}
		return nil
	})
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *transferService) GetTransfer(ctx context.Context, id int64) (*StockTransfer, error) {
	t, err := s.store.GetTransfer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transfer %d: %w", id, err)
	}
	return t, nil
}

func (s *transferService) ListTransfers(ctx context.Context, f TransferFilter) (*TransferPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newValidationError("status", fmt.Sprintf("unknown transfer status %q", f.Status))
	}
	f = f.Normalize()
	transfers, total, err := s.store.ListTransfers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return NewTransferPage(transfers, total, f), nil
}

func (s *transferService) Statistics(ctx context.Context) (*TransferStats, error) {
	stats, err := s.store.TransferStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute transfer statistics: %w", err)
	}
	return stats, nil
}
