package core_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-transfer/internal/core"
	"inventory-transfer/internal/store/memory"
)

func TestTransfer_ExecuteMovesStock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)
	tr := f.newTransfer(t, 50)

	ok, err := f.transfers.CanExecute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	done, err := f.transfers.Execute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCompleted, done.Status)
	require.NotNil(t, done.TransferredAt)

	src, dst := f.stock(t, f.warehouseA), f.stock(t, f.warehouseB)
	assert.Equal(t, 50, src.AvailableQuantity)
	assert.Equal(t, 50, src.Quantity)
	assert.Equal(t, 50, dst.AvailableQuantity)
	assert.Equal(t, 50, dst.Quantity)
	assert.Equal(t, 100, src.Quantity+dst.Quantity)
	assert.Empty(t, f.events.all())

	stored, err := f.transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCompleted, stored.Status)
}

func TestTransfer_ExecuteIntoExistingDestination(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 40)
	f.receive(t, f.warehouseB, 15)
	tr := f.newTransfer(t, 25)

	_, err := f.transfers.Execute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, f.stock(t, f.warehouseA).AvailableQuantity)
	assert.Equal(t, 40, f.stock(t, f.warehouseB).AvailableQuantity)
}

func TestTransfer_OverTransferLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)
	tr := f.newTransfer(t, 150)

	ok, err := f.transfers.CanExecute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.transfers.Execute(f.ctx, tr.ID)
	assert.ErrorIs(t, err, core.ErrInsufficientAvailable)

	assert.Equal(t, 100, f.stock(t, f.warehouseA).AvailableQuantity)
	_, err = f.store.GetStock(f.ctx, f.warehouseB, f.item.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "destination row must not be created")

	stored, err := f.transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferPending, stored.Status)
	assert.Nil(t, stored.TransferredAt)
}

func TestTransfer_ExecuteWithoutSourceRow(t *testing.T) {
	f := newFixture(t)
	tr := f.newTransfer(t, 1)

	ok, err := f.transfers.CanExecute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.transfers.Execute(f.ctx, tr.ID)
	assert.ErrorIs(t, err, core.ErrInsufficientAvailable)
}

func TestTransfer_ReservedUnitsAreNotTransferable(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 30)
	_, err := f.ledger.ReserveStock(f.ctx, f.warehouseA, f.item.ID, 20)
	require.NoError(t, err)

	tr := f.newTransfer(t, 15)
	_, err = f.transfers.Execute(f.ctx, tr.ID)
	assert.ErrorIs(t, err, core.ErrInsufficientAvailable)
}

func TestTransfer_TerminalStatesAreImmutable(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)

	completed := f.newTransfer(t, 10)
	_, err := f.transfers.Execute(f.ctx, completed.ID)
	require.NoError(t, err)

	cancelled := f.newTransfer(t, 10)
	c, err := f.transfers.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCancelled, c.Status)

	for _, id := range []int64{completed.ID, cancelled.ID} {
		before := f.stock(t, f.warehouseA).AvailableQuantity

		_, err = f.transfers.Execute(f.ctx, id)
		assert.ErrorIs(t, err, core.ErrInvalidState)
		_, err = f.transfers.Cancel(f.ctx, id)
		assert.ErrorIs(t, err, core.ErrInvalidState)
		_, err = f.transfers.UpdateNotes(f.ctx, id, "late edit")
		assert.ErrorIs(t, err, core.ErrInvalidState)
		assert.ErrorIs(t, f.transfers.DeleteTransfer(f.ctx, id), core.ErrInvalidState)

		ok, err := f.transfers.CanExecute(f.ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, f.stock(t, f.warehouseA).AvailableQuantity)
	}

	stored, err := f.transfers.GetTransfer(f.ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCompleted, stored.Status)
	stored, err = f.transfers.GetTransfer(f.ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCancelled, stored.Status)
}

func TestTransfer_CancelDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 20)
	tr := f.newTransfer(t, 5)

	_, err := f.transfers.Cancel(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, f.stock(t, f.warehouseA).AvailableQuantity)
	_, err = f.store.GetStock(f.ctx, f.warehouseB, f.item.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTransfer_UpdateNotesAndDeleteWhilePending(t *testing.T) {
	f := newFixture(t)
	tr := f.newTransfer(t, 5)

	updated, err := f.transfers.UpdateNotes(f.ctx, tr.ID, "  pallet 4  ")
	require.NoError(t, err)
	assert.Equal(t, "pallet 4", updated.Notes)

	_, err = f.transfers.UpdateNotes(f.ctx, tr.ID, strings.Repeat("x", core.MaxNotesLength+1))
	assert.True(t, core.IsValidation(err))

	require.NoError(t, f.transfers.DeleteTransfer(f.ctx, tr.ID))
	_, err = f.transfers.GetTransfer(f.ctx, tr.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.transfers.DeleteTransfer(f.ctx, tr.ID), core.ErrNotFound)
}

func TestTransfer_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    core.NewTransferInput
		field string
	}{
		{"same warehouse", core.NewTransferInput{FromWarehouseID: f.warehouseA, ToWarehouseID: f.warehouseA, ItemID: f.item.ID, Quantity: 1}, "to_warehouse_id"},
		{"zero quantity", core.NewTransferInput{FromWarehouseID: f.warehouseA, ToWarehouseID: f.warehouseB, ItemID: f.item.ID}, "quantity"},
		{"unknown item", core.NewTransferInput{FromWarehouseID: f.warehouseA, ToWarehouseID: f.warehouseB, ItemID: 999, Quantity: 1}, "inventory_item_id"},
		{"unknown destination", core.NewTransferInput{FromWarehouseID: f.warehouseA, ToWarehouseID: 999, ItemID: f.item.ID, Quantity: 1}, "to_warehouse_id"},
		{"notes too long", core.NewTransferInput{FromWarehouseID: f.warehouseA, ToWarehouseID: f.warehouseB, ItemID: f.item.ID, Quantity: 1, Notes: strings.Repeat("n", 1001)}, "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.transfers.CreateTransfer(f.ctx, tt.in)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	_, err := f.transfers.CreateTransfer(f.ctx, tests[0].in)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Source and destination warehouses must be different.", verr.Fields["to_warehouse_id"])
}

// ── Atomicity and compensation ───────────────────────────────────────────────

func TestTransfer_DestinationFailureIsCompensated(t *testing.T) {
	fs := &faultyStore{Store: memory.New()}
	f := newFixtureWithStore(t, fs)
	f.receive(t, f.warehouseA, 100)
	tr := f.newTransfer(t, 30)

	destFailure := errors.New("disk full")
	fs.failSave = func(s *core.Stock) error {
		if s.WarehouseID == f.warehouseB {
			return destFailure
		}
		return nil
	}

	_, err := f.transfers.Execute(f.ctx, tr.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, destFailure)
	assert.NotErrorIs(t, err, core.ErrInconsistentState)

	fs.failSave = nil
	assert.Equal(t, 100, f.stock(t, f.warehouseA).AvailableQuantity)
	_, err = f.store.GetStock(f.ctx, f.warehouseB, f.item.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	stored, err := f.transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferPending, stored.Status)
	assert.Empty(t, f.events.all())

	// The transfer is still executable once the fault clears.
	_, err = f.transfers.Execute(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, f.stock(t, f.warehouseA).AvailableQuantity)
	assert.Equal(t, 30, f.stock(t, f.warehouseB).AvailableQuantity)
}

func TestTransfer_FailedCompensationIsInconsistentState(t *testing.T) {
	fs := &faultyStore{Store: memory.New()}
	f := newFixtureWithStore(t, fs)
	f.receive(t, f.warehouseA, 100)
	tr := f.newTransfer(t, 30)

	var mu sync.Mutex
	sourceWrites := 0
	fs.failSave = func(s *core.Stock) error {
		mu.Lock()
		defer mu.Unlock()
		if s.WarehouseID == f.warehouseB {
			return errors.New("destination write failed")
		}
		sourceWrites++
		if sourceWrites > 1 {
			return errors.New("source write failed")
		}
		return nil
	}

	_, err := f.transfers.Execute(f.ctx, tr.ID)
	assert.ErrorIs(t, err, core.ErrInconsistentState)

	// The unit of work still rolled back as a whole.
	fs.failSave = nil
	assert.Equal(t, 100, f.stock(t, f.warehouseA).AvailableQuantity)
	stored, err := f.transfers.GetTransfer(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferPending, stored.Status)
}

// ── Concurrency ──────────────────────────────────────────────────────────────

func TestTransfer_ConcurrentExecuteOfSameTransfer(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)
	tr := f.newTransfer(t, 40)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transfers.Execute(f.ctx, tr.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, core.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 60, f.stock(t, f.warehouseA).AvailableQuantity)
	assert.Equal(t, 40, f.stock(t, f.warehouseB).AvailableQuantity)
}

func TestTransfer_ConcurrentExecutesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)

	const n = 10
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = f.newTransfer(t, 20).ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.transfers.Execute(f.ctx, id)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, core.ErrInsufficientAvailable)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	src, dst := f.stock(t, f.warehouseA), f.stock(t, f.warehouseB)
	assert.Equal(t, 0, src.AvailableQuantity)
	assert.Equal(t, 100, dst.AvailableQuantity)
	assert.True(t, src.Consistent())
	assert.True(t, dst.Consistent())
}

func TestTransfer_OppositeDirectionsDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 50)
	f.receive(t, f.warehouseB, 50)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.newTransfer(t, 5).ID)
		back, err := f.transfers.CreateTransfer(f.ctx, core.NewTransferInput{
			FromWarehouseID: f.warehouseB, ToWarehouseID: f.warehouseA, ItemID: f.item.ID, Quantity: 5,
		})
		require.NoError(t, err)
		ids = append(ids, back.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.transfers.Execute(f.ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 50, f.stock(t, f.warehouseA).Quantity)
	assert.Equal(t, 50, f.stock(t, f.warehouseB).Quantity)
}

// ── Listing ──────────────────────────────────────────────────────────────────

func TestTransfer_ListFiltersAndStatistics(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.warehouseA, 100)

	c, err := f.inventory.CreateWarehouse(f.ctx, core.Warehouse{Name: "South", Location: "Maastricht"})
	require.NoError(t, err)

	var created []*core.StockTransfer
	for i := 0; i < 17; i++ {
		created = append(created, f.newTransfer(t, 1))
	}
	other, err := f.transfers.CreateTransfer(f.ctx, core.NewTransferInput{
		FromWarehouseID: f.warehouseB, ToWarehouseID: c.ID, ItemID: f.item.ID, Quantity: 3,
	})
	require.NoError(t, err)

	_, err = f.transfers.Execute(f.ctx, created[0].ID)
	require.NoError(t, err)
	_, err = f.transfers.Execute(f.ctx, created[1].ID)
	require.NoError(t, err)
	_, err = f.transfers.Cancel(f.ctx, created[2].ID)
	require.NoError(t, err)

	page, err := f.transfers.ListTransfers(f.ctx, core.TransferFilter{})
	require.NoError(t, err)
	assert.Equal(t, 18, page.Total)
	assert.Equal(t, core.DefaultPerPage, page.PerPage)
	assert.Len(t, page.Transfers, core.DefaultPerPage)
	assert.Equal(t, 2, page.LastPage)
	assert.Equal(t, other.ID, page.Transfers[0].ID, "newest first")

	page, err = f.transfers.ListTransfers(f.ctx, core.TransferFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Transfers, 3)

	page, err = f.transfers.ListTransfers(f.ctx, core.TransferFilter{Status: core.TransferCompleted})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.transfers.ListTransfers(f.ctx, core.TransferFilter{WarehouseID: c.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, other.ID, page.Transfers[0].ID)

	page, err = f.transfers.ListTransfers(f.ctx, core.TransferFilter{WarehouseID: f.warehouseB})
	require.NoError(t, err)
	assert.Equal(t, 18, page.Total, "destination side matches too")

	_, err = f.transfers.ListTransfers(f.ctx, core.TransferFilter{Status: "shipped"})
	assert.True(t, core.IsValidation(err))

	stats, err := f.transfers.Statistics(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.TransferStats{
		TotalTransfers:        18,
		PendingTransfers:      15,
		CompletedTransfers:    2,
		CancelledTransfers:    1,
		TotalItemsTransferred: 2,
	}, *stats)
}
